package engine

import (
	"sync"
	"time"

	"github.com/lfvieira/hypershort/internal/position"
)

// Poll interval clamp bounds.
const (
	minPollInterval = 15 * time.Second
	maxPollInterval = 120 * time.Second
)

// Settings holds the runtime-tunable knobs. All reads and writes are
// mutex-guarded so running components can consume values mid-flight; a
// change applies on each consumer's next read and never rewrites existing
// positions.
type Settings struct {
	mu sync.RWMutex

	watched      string
	threshold    float64
	period       int
	pollInterval time.Duration
	useRSI       bool
	autoTrade    bool

	size          float64
	leverage      int
	stopLossPct   float64
	takeProfitPct float64
}

// SettingsInit seeds a Settings from configuration.
type SettingsInit struct {
	Watched       string
	Threshold     float64
	Period        int
	PollInterval  time.Duration
	UseRSI        bool
	AutoTrade     bool
	Size          float64
	Leverage      int
	StopLossPct   float64
	TakeProfitPct float64
}

// NewSettings creates Settings with the given initial values, clamped into
// their valid ranges.
func NewSettings(init SettingsInit) *Settings {
	s := &Settings{}
	s.SetWatched(init.Watched)
	s.SetThreshold(init.Threshold)
	s.SetPeriod(init.Period)
	s.SetPollInterval(init.PollInterval)
	s.SetUseRSI(init.UseRSI)
	s.SetAutoTrade(init.AutoTrade)
	s.SetTradeParams(position.TradeParams{
		Size:          init.Size,
		Leverage:      init.Leverage,
		StopLossPct:   init.StopLossPct,
		TakeProfitPct: init.TakeProfitPct,
	})
	return s
}

func (s *Settings) Watched() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watched
}

func (s *Settings) SetWatched(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != "" {
		s.watched = token
	}
}

func (s *Settings) Threshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

func (s *Settings) SetThreshold(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v > 0 && v < 100 {
		s.threshold = v
	}
}

func (s *Settings) Period() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.period
}

func (s *Settings) SetPeriod(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v >= 2 {
		s.period = v
	}
}

func (s *Settings) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pollInterval
}

// SetPollInterval clamps the detector cadence into [15s, 120s].
func (s *Settings) SetPollInterval(v time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case v < minPollInterval:
		s.pollInterval = minPollInterval
	case v > maxPollInterval:
		s.pollInterval = maxPollInterval
	default:
		s.pollInterval = v
	}
}

func (s *Settings) UseRSI() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.useRSI
}

func (s *Settings) SetUseRSI(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useRSI = v
}

func (s *Settings) AutoTrade() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoTrade
}

func (s *Settings) SetAutoTrade(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoTrade = v
}

func (s *Settings) TradeParams() position.TradeParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return position.TradeParams{
		Size:          s.size,
		Leverage:      s.leverage,
		StopLossPct:   s.stopLossPct,
		TakeProfitPct: s.takeProfitPct,
	}
}

// SetTradeParams updates the sizing knobs for future opens. Invalid fields
// are skipped individually so a partial update keeps the valid rest.
func (s *Settings) SetTradeParams(p position.TradeParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Size > 0 {
		s.size = p.Size
	}
	if p.Leverage >= 1 {
		s.leverage = p.Leverage
	}
	if p.StopLossPct > 0 {
		s.stopLossPct = p.StopLossPct
	}
	if p.TakeProfitPct > 0 {
		s.takeProfitPct = p.TakeProfitPct
	}
}

// View is a consistent copy of all settings, used by the config API. The
// poll interval is expressed in seconds on the wire.
type View struct {
	Watched        string  `json:"watchedToken"`
	Threshold      float64 `json:"rsiThreshold"`
	Period         int     `json:"rsiPeriod"`
	CheckIntervalS int     `json:"checkIntervalSeconds"`
	UseRSI         bool    `json:"useRSI"`
	AutoTrade      bool    `json:"autoTrade"`
	Size           float64 `json:"positionSize"`
	Leverage       int     `json:"leverage"`
	StopLossPct    float64 `json:"stopLossPct"`
	TakeProfitPct  float64 `json:"takeProfitPct"`
}

// Snapshot returns a consistent copy of all settings.
func (s *Settings) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Watched:        s.watched,
		Threshold:      s.threshold,
		Period:         s.period,
		CheckIntervalS: int(s.pollInterval / time.Second),
		UseRSI:         s.useRSI,
		AutoTrade:      s.autoTrade,
		Size:           s.size,
		Leverage:       s.leverage,
		StopLossPct:    s.stopLossPct,
		TakeProfitPct:  s.takeProfitPct,
	}
}
