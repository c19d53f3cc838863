// Package indicator computes the RSI oscillator from candle history and
// keeps every tracked token's reading current against the historical-data
// endpoint.
package indicator

// RSI computes a simple (cumulative, not Wilder-smoothed) relative strength
// index over the last period+1 closes. Closes must be ordered oldest to
// newest.
//
// With fewer than period+1 closes it returns the neutral 50. When no step
// lost ground (avgLoss == 0) it returns the maximal overbought reading 100.
// The result is in [0,100] by construction.
func RSI(closes []float64, period int) float64 {
	if period < 1 || len(closes) < period+1 {
		return 50
	}

	window := closes[len(closes)-period-1:]

	var gains, losses float64
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
