package simulator

import "sync"

// InstrumentState is the mutable per-instrument walk state. LastPrice is
// always positive. PreviousClose is fixed at seeding time and never
// refreshed, so changePercent means "change since simulation start" rather
// than change since the last session close.
type InstrumentState struct {
	ID            string
	Ticker        string
	LastPrice     float64
	PreviousClose float64
}

// InstrumentStore holds one state entry per tracked instrument. The
// generation cycle is the only writer of LastPrice; Seed may be called
// concurrently when new instruments are registered mid-session.
type InstrumentStore struct {
	mu     sync.RWMutex
	states map[string]*InstrumentState
}

func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{states: make(map[string]*InstrumentState)}
}

// Seed inserts or resets an instrument's state. Re-seeding an existing
// ticker overwrites it (documented overwrite semantics).
func (s *InstrumentStore) Seed(id, ticker string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[ticker] = &InstrumentState{
		ID:            id,
		Ticker:        ticker,
		LastPrice:     price,
		PreviousClose: price,
	}
}

// Get returns a copy of the entry so callers never share mutable state.
func (s *InstrumentStore) Get(ticker string) (InstrumentState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[ticker]
	if !ok {
		return InstrumentState{}, false
	}
	return *state, true
}

func (s *InstrumentStore) SetLastPrice(ticker string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[ticker]; ok {
		state.LastPrice = price
	}
}

// Tickers returns a snapshot of tracked tickers for cycle iteration.
func (s *InstrumentStore) Tickers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tickers := make([]string, 0, len(s.states))
	for t := range s.states {
		tickers = append(tickers, t)
	}
	return tickers
}

func (s *InstrumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
