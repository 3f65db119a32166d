package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

// nopMetrics satisfies the metrics port without recording anything.
type nopMetrics struct{}

func (nopMetrics) RecordObservation(source, symbol string)      {}
func (nopMetrics) RecordError(kind string)                      {}
func (nopMetrics) RecordAggregatedPrice(symbol string, p float64) {}
func (nopMetrics) RecordConfidence(symbol string, s float64)    {}
func (nopMetrics) RecordLatency(op string, seconds float64)     {}

// captureMetrics counts errors by kind.
type captureMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{errors: make(map[string]int)}
}

func (m *captureMetrics) RecordObservation(source, symbol string)      {}
func (m *captureMetrics) RecordAggregatedPrice(symbol string, p float64) {}
func (m *captureMetrics) RecordConfidence(symbol string, s float64)    {}
func (m *captureMetrics) RecordLatency(op string, seconds float64)     {}

func (m *captureMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *captureMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// fakeRegistry returns a fixed symbol list or a fixed error.
type fakeRegistry struct {
	symbols []string
	err     error
}

func (r *fakeRegistry) SupportedSymbols(ctx context.Context) ([]string, error) {
	return r.symbols, r.err
}

func testConfig() models.AggregatorConfig {
	cfg := models.DefaultAggregatorConfig()
	cfg.UpdateInterval = time.Hour // keep the scheduler quiet in tests
	return cfg
}

func fptr(v float64) *float64 { return &v }
