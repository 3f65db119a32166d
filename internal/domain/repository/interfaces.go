package repository

import (
	"context"

	"MarketPulse/internal/domain/models"
)

// FeedStream is an upstream price feed delivering observations asynchronously.
type FeedStream interface {
	Name() string
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceObservation, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SymbolRegistry supplies the supported-symbol list at construction time.
type SymbolRegistry interface {
	SupportedSymbols(ctx context.Context) ([]string, error)
}

// EventPublisher fans engine notifications out to an external transport.
type EventPublisher interface {
	Publish(ctx context.Context, ev *models.Event) error
	Close() error
}

// SnapshotStore caches the latest aggregated state for external readers.
// Entries are ephemeral (TTL-bound); this is not durable persistence.
type SnapshotStore interface {
	SaveRecord(ctx context.Context, rec *models.AggregatedRecord) error
	SaveSummary(ctx context.Context, sum *models.MarketSummary) error
	Close() error
}

type Metrics interface {
	RecordObservation(source, symbol string)
	RecordError(kind string)
	RecordAggregatedPrice(symbol string, price float64)
	RecordConfidence(symbol string, score float64)
	RecordLatency(op string, seconds float64)
}
