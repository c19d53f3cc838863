// Package market maintains the shared per-token market state table: current
// mid price, step change, indicator value, and candle history. It is the
// single synchronization point between the feed supervisor (price writer),
// the indicator engine (RSI writer), and the detector / position book
// (readers).
package market

import (
	"sort"
	"sync"
	"time"

	"github.com/lfvieira/hypershort/internal/domain"
)

// Store is a lock-protected table keyed by token. Locking is per token:
// updates to different tokens never contend, and each read-modify-write on a
// single token is atomic with respect to concurrent writers of that token.
type Store struct {
	mu      sync.RWMutex // guards the map itself, entries are never removed
	entries map[string]*entry
	tokens  []string // tracked tokens in configuration order
	now     func() time.Time
}

type entry struct {
	mu    sync.RWMutex
	state domain.InstrumentState
}

// NewStore creates a Store tracking the given tokens. Every token starts
// with an unknown price and a neutral indicator reading.
func NewStore(tokens []string) *Store {
	s := &Store{
		entries: make(map[string]*entry, len(tokens)),
		tokens:  append([]string(nil), tokens...),
		now:     time.Now,
	}
	for _, t := range tokens {
		s.entries[t] = &entry{state: domain.InstrumentState{
			Token: t,
			RSI:   domain.NeutralRSI,
		}}
	}
	return s
}

// Tokens returns the tracked tokens in configuration order.
func (s *Store) Tokens() []string {
	return append([]string(nil), s.tokens...)
}

// ApplyMid applies a new mid price for token as one atomic read-modify-write:
// the old price becomes PrevPrice and the step change percentage is derived
// from it (0 when the old price was unknown). It returns the updated state
// and false when the token is not tracked. Callers must apply updates for a
// given token in arrival order; the feed supervisor guarantees this by
// dispatching from a single goroutine.
func (s *Store) ApplyMid(token string, price float64) (domain.InstrumentState, bool) {
	e := s.lookup(token)
	if e == nil {
		return domain.InstrumentState{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.state.Price
	e.state.PrevPrice = prev
	e.state.Price = price
	if prev > 0 {
		e.state.ChangePct = (price - prev) / prev * 100
	} else {
		e.state.ChangePct = 0
	}
	e.state.UpdatedAt = s.now()

	return copyState(&e.state), true
}

// SetIndicator stores a freshly computed RSI value and the candle window it
// was derived from. Indicator updates are independent of price-update
// ordering. It returns false when the token is not tracked.
func (s *Store) SetIndicator(token string, rsi float64, candles []domain.Candle) bool {
	e := s.lookup(token)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.RSI = rsi
	e.state.Candles = append([]domain.Candle(nil), candles...)
	return true
}

// Get returns a deep copy of the token's state.
func (s *Store) Get(token string) (domain.InstrumentState, bool) {
	e := s.lookup(token)
	if e == nil {
		return domain.InstrumentState{}, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyState(&e.state), true
}

// Price returns the current mid for token, 0 when unknown or untracked.
func (s *Store) Price(token string) float64 {
	st, ok := s.Get(token)
	if !ok {
		return 0
	}
	return st.Price
}

// Snapshot returns deep copies of all tracked instrument states, sorted by
// token for stable presentation.
func (s *Store) Snapshot() []domain.InstrumentState {
	out := make([]domain.InstrumentState, 0, len(s.tokens))
	for _, t := range s.tokens {
		if st, ok := s.Get(t); ok {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

func (s *Store) lookup(token string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[token]
}

func copyState(st *domain.InstrumentState) domain.InstrumentState {
	cp := *st
	cp.Candles = append([]domain.Candle(nil), st.Candles...)
	return cp
}
