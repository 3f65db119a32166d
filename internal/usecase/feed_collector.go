package usecase

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	mid "MarketPulse/internal/middleware"
)

// maxReconnectBackoff caps the delay between reconnect attempts.
const maxReconnectBackoff = 30 * time.Second

// FeedCollector connects the configured upstream feeds and pushes their
// observations through the ingestion pipeline into the engine.
type FeedCollector struct {
	streams    []drepo.FeedStream
	engine     *Engine
	metrics    drepo.Metrics
	pipe       *mid.IngestPipeline
	retryDelay time.Duration
}

// NewFeedCollector creates a new FeedCollector instance.
func NewFeedCollector(streams []drepo.FeedStream, engine *Engine, metrics drepo.Metrics, pipe *mid.IngestPipeline) *FeedCollector {
	return &FeedCollector{
		streams:    streams,
		engine:     engine,
		metrics:    metrics,
		pipe:       pipe,
		retryDelay: time.Second,
	}
}

// Start connects every feed and begins consuming. A feed that fails to connect
// is skipped; the engine degrades to the remaining sources.
func (c *FeedCollector) Start(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	for _, stream := range c.streams {
		if err := stream.Connect(ctx); err != nil {
			c.metrics.RecordError("feed_connect_" + stream.Name())
			continue
		}
		if err := stream.Subscribe(ctx); err != nil {
			c.metrics.RecordError("feed_subscribe_" + stream.Name())
			_ = stream.Close()
			continue
		}
		obsCh, errCh := stream.Read(ctx)
		go c.consume(ctx, stream, obsCh, errCh)
	}
	return nil
}

// consume pumps one stream into the engine. Adapters close both channels when
// their read loop dies, so a closed channel means the stream needs reconnecting.
func (c *FeedCollector) consume(ctx context.Context, stream drepo.FeedStream, obsCh <-chan *models.PriceObservation, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok || err != nil {
				c.metrics.RecordError("feed_stream")
				if obsCh, errCh = c.reopen(ctx, stream); obsCh == nil {
					return
				}
			}
		case obs, ok := <-obsCh:
			if !ok {
				if obsCh, errCh = c.reopen(ctx, stream); obsCh == nil {
					return
				}
				continue
			}
			if obs == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, obs)
			} else {
				_ = c.engine.Ingest(ctx, obs)
			}
		}
	}
}

// reopen reconnects the stream, retrying with exponential backoff until it
// succeeds or ctx is cancelled. Returns nil channels on cancellation.
func (c *FeedCollector) reopen(ctx context.Context, stream drepo.FeedStream) (<-chan *models.PriceObservation, <-chan error) {
	backoff := c.retryDelay
	for {
		if err := stream.Reconnect(ctx); err == nil {
			return stream.Read(ctx)
		}
		c.metrics.RecordError("feed_reconnect_" + stream.Name())
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(backoff):
		}
		if backoff < maxReconnectBackoff {
			backoff *= 2
		}
	}
}

// Shutdown stops the pipeline and closes all feeds.
func (c *FeedCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	var firstErr error
	for _, stream := range c.streams {
		if err := stream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
