package usecase

import (
	"testing"

	"MarketPulse/internal/domain/models"
)

func TestHistoryEviction(t *testing.T) {
	st := &symbolState{}
	for i := 0; i < 250; i++ {
		st.appendHistory(float64(i))
	}
	if len(st.history) != historyCapacity {
		t.Fatalf("history length = %d, want %d", len(st.history), historyCapacity)
	}
	if st.history[0] != 50 {
		t.Fatalf("oldest sample = %v, want 50", st.history[0])
	}
	if st.history[len(st.history)-1] != 249 {
		t.Fatalf("newest sample = %v, want 249", st.history[len(st.history)-1])
	}
	// Order must survive eviction.
	for i := 1; i < len(st.history); i++ {
		if st.history[i] != st.history[i-1]+1 {
			t.Fatalf("history out of order at %d: %v", i, st.history[i])
		}
	}
}

func TestEnsureIdempotent(t *testing.T) {
	s := NewStateStore()
	a := s.Ensure("BTC")
	b := s.Ensure("BTC")
	if a != b {
		t.Fatalf("Ensure must return the same state for the same symbol")
	}
	if len(s.Symbols()) != 1 {
		t.Fatalf("expected 1 symbol, got %d", len(s.Symbols()))
	}
}

func TestRecordsReturnsCopies(t *testing.T) {
	s := NewStateStore()
	st := s.Ensure("BTC")
	st.mu.Lock()
	st.record.Price = 100
	st.record.Sources = []models.SourceRecord{{Source: "oracle", Price: 100}}
	st.mu.Unlock()

	recs := s.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record")
	}
	recs[0].Price = 999
	recs[0].Sources[0].Price = 999

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.record.Price != 100 || st.record.Sources[0].Price != 100 {
		t.Fatalf("mutation of returned record leaked into store")
	}
}

func TestClear(t *testing.T) {
	s := NewStateStore()
	s.Ensure("BTC")
	s.Ensure("ETH")
	s.Clear()
	if len(s.Symbols()) != 0 {
		t.Fatalf("expected empty store after Clear")
	}
}
