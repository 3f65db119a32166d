package usecase

import (
	"sync"

	"MarketPulse/internal/domain/models"
)

// historyCapacity bounds the per-symbol price history buffer (FIFO eviction).
const historyCapacity = 200

// symbolState holds everything the engine tracks for one symbol. Each symbol
// carries its own lock so observations for unrelated symbols never contend.
type symbolState struct {
	mu      sync.Mutex
	record  models.AggregatedRecord
	history []float64
	trend   *models.MarketTrend
}

// appendHistory appends one aggregated price, evicting the oldest samples once
// the buffer exceeds capacity. Caller must hold st.mu.
func (st *symbolState) appendHistory(price float64) {
	st.history = append(st.history, price)
	if over := len(st.history) - historyCapacity; over > 0 {
		copy(st.history, st.history[over:])
		st.history = st.history[:historyCapacity]
	}
}

// sourceIndex returns the index of the named source record, or -1.
// Caller must hold st.mu.
func (st *symbolState) sourceIndex(source string) int {
	for i := range st.record.Sources {
		if st.record.Sources[i].Source == source {
			return i
		}
	}
	return -1
}

// recordCopy deep-copies the aggregated record so callers can never observe a
// later mutation. Caller must hold st.mu.
func (st *symbolState) recordCopy() models.AggregatedRecord {
	out := st.record
	out.Sources = make([]models.SourceRecord, len(st.record.Sources))
	copy(out.Sources, st.record.Sources)
	return out
}

// trendCopy deep-copies the current trend, or returns nil. Caller must hold st.mu.
func (st *symbolState) trendCopy() *models.MarketTrend {
	if st.trend == nil {
		return nil
	}
	out := *st.trend
	out.Indicators = make([]models.TechnicalIndicator, len(st.trend.Indicators))
	copy(out.Indicators, st.trend.Indicators)
	return &out
}

// StateStore owns all per-symbol state. The outer map is guarded by its own
// lock; per-symbol mutation is serialized by the symbolState lock.
type StateStore struct {
	mu      sync.RWMutex
	symbols map[string]*symbolState
}

func NewStateStore() *StateStore {
	return &StateStore{symbols: make(map[string]*symbolState)}
}

// Ensure returns the state for symbol, creating it on first sight.
func (s *StateStore) Ensure(symbol string) *symbolState {
	s.mu.RLock()
	st, ok := s.symbols[symbol]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.symbols[symbol]; ok {
		return st
	}
	st = &symbolState{record: models.AggregatedRecord{Symbol: symbol}}
	s.symbols[symbol] = st
	return st
}

// Lookup returns the state for symbol without creating it.
func (s *StateStore) Lookup(symbol string) (*symbolState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.symbols[symbol]
	return st, ok
}

// Symbols returns all tracked symbols.
func (s *StateStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}

// Records returns a consistent copy of every aggregated record.
func (s *StateStore) Records() []models.AggregatedRecord {
	s.mu.RLock()
	states := make([]*symbolState, 0, len(s.symbols))
	for _, st := range s.symbols {
		states = append(states, st)
	}
	s.mu.RUnlock()

	out := make([]models.AggregatedRecord, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, st.recordCopy())
		st.mu.Unlock()
	}
	return out
}

// Trends returns a copy of every symbol's current trend, skipping symbols that
// have not accumulated enough history for one.
func (s *StateStore) Trends() []models.MarketTrend {
	s.mu.RLock()
	states := make([]*symbolState, 0, len(s.symbols))
	for _, st := range s.symbols {
		states = append(states, st)
	}
	s.mu.RUnlock()

	out := make([]models.MarketTrend, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		if t := st.trendCopy(); t != nil {
			out = append(out, *t)
		}
		st.mu.Unlock()
	}
	return out
}

// Clear drops all per-symbol state.
func (s *StateStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols = make(map[string]*symbolState)
}
