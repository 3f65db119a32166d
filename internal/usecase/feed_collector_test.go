package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

// flakyStream fails its first read and then refuses a few reconnect attempts
// before recovering and delivering one observation.
type flakyStream struct {
	mu         sync.Mutex
	reconnects int
	failures   int
	recovered  bool
}

func (s *flakyStream) Name() string                        { return "flaky" }
func (s *flakyStream) Connect(ctx context.Context) error   { return nil }
func (s *flakyStream) Subscribe(ctx context.Context) error { return nil }
func (s *flakyStream) Close() error                        { return nil }
func (s *flakyStream) IsConnected() bool                   { return true }

func (s *flakyStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	if s.reconnects <= s.failures {
		return errors.New("upstream still down")
	}
	s.recovered = true
	return nil
}

func (s *flakyStream) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

func (s *flakyStream) Read(ctx context.Context) (<-chan *models.PriceObservation, <-chan error) {
	obsCh := make(chan *models.PriceObservation, 4)
	errCh := make(chan error, 1)
	s.mu.Lock()
	recovered := s.recovered
	s.mu.Unlock()
	if !recovered {
		// simulate the adapter's read loop dying: emit one error, close both
		errCh <- errors.New("stream read: connection reset")
		close(errCh)
		close(obsCh)
		return obsCh, errCh
	}
	obsCh <- &models.PriceObservation{
		Source:    "oracle",
		Symbol:    "BTC",
		Price:     100,
		Timestamp: time.Now(),
	}
	return obsCh, errCh
}

func TestFeedCollectorReconnectsAfterStreamDeath(t *testing.T) {
	e := newTestEngine(t, testConfig(), nil)
	stream := &flakyStream{failures: 3}

	c := NewFeedCollector(nil, e, nopMetrics{}, nil)
	c.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obsCh, errCh := stream.Read(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.consume(ctx, stream, obsCh, errCh)
	}()

	deadline := time.After(2 * time.Second)
	for e.GetAggregatedData("BTC") == nil {
		select {
		case <-deadline:
			t.Fatalf("observation never ingested after stream recovery (reconnect attempts: %d)", stream.attempts())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	if got := stream.attempts(); got < 4 {
		t.Fatalf("reconnect attempts = %d, want at least 4 (3 failures + 1 success)", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("consume did not stop on context cancellation")
	}
}

func TestFeedCollectorStopsWhenCancelledDuringBackoff(t *testing.T) {
	e := newTestEngine(t, testConfig(), nil)
	stream := &flakyStream{failures: 1 << 30} // never recovers

	c := NewFeedCollector(nil, e, nopMetrics{}, nil)
	c.retryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	obsCh, errCh := stream.Read(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.consume(ctx, stream, obsCh, errCh)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("consume kept running after context cancellation")
	}
}
