package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

// ErrEngineDestroyed is returned by all mutating operations after Destroy.
var ErrEngineDestroyed = errors.New("engine destroyed")

// Engine is the market data aggregation and technical-analysis engine. It owns
// all per-symbol state, the notification registry, and the periodic summary
// scheduler.
type Engine struct {
	store    *StateStore
	cfg      *runtimeConfig
	notifier *Notifier
	agg      *PriceAggregator
	summary  *SummaryGenerator
	metrics  drepo.Metrics
	log      *logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	running   bool
	destroyed bool
	stopCh    chan struct{}
	wg        sync.WaitGroup

	sumMu       sync.RWMutex
	lastSummary *models.MarketSummary
}

// NewEngine builds the engine and primes per-symbol state from the registry.
// A registry failure degrades to an empty symbol set: the engine still works,
// symbols become known as observations arrive.
func NewEngine(ctx context.Context, cfg models.AggregatorConfig, registry drepo.SymbolRegistry, metrics drepo.Metrics, log *logger.Logger) *Engine {
	store := NewStateStore()
	rc := newRuntimeConfig(cfg)
	notifier := NewNotifier()

	e := &Engine{
		store:    store,
		cfg:      rc,
		notifier: notifier,
		agg:      NewPriceAggregator(store, rc, notifier, metrics),
		summary:  NewSummaryGenerator(store, rc),
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}

	if registry != nil {
		symbols, err := registry.SupportedSymbols(ctx)
		if err != nil {
			e.log.Warn("symbol registry unavailable, starting with empty registry", logger.Error(err))
			e.metrics.RecordError("initialization")
			e.emitError("initialization", err.Error())
		} else {
			for _, sym := range symbols {
				st := store.Ensure(sym)
				st.mu.Lock()
				st.record.Stale = true // no observations yet
				st.mu.Unlock()
			}
			e.log.Info("symbol registry loaded", logger.Int("symbols", len(symbols)))
		}
	}

	e.publish(models.EventInitialized, "", nil)
	return e
}

// Ingest accepts one price observation at the ingestion boundary.
func (e *Engine) Ingest(ctx context.Context, obs *models.PriceObservation) error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrEngineDestroyed
	}
	e.mu.Unlock()
	return e.agg.Process(ctx, obs)
}

// Process satisfies the ingestion pipeline's processor contract.
func (e *Engine) Process(ctx context.Context, obs *models.PriceObservation) error {
	return e.Ingest(ctx, obs)
}

// Start moves the engine into the Running state and schedules summary
// generation. Calling Start while running is a no-op.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrEngineDestroyed
	}
	if e.running {
		e.mu.Unlock()
		e.log.Debug("start ignored, engine already running")
		return nil
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.wg.Add(1)
	go e.run(e.stopCh)
	e.mu.Unlock()

	e.log.Info("engine started", logger.Duration("update_interval", e.cfg.snapshot().UpdateInterval))
	e.publish(models.EventStarted, "", nil)
	return nil
}

// Stop cancels the scheduler. Calling Stop while stopped is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	e.wg.Wait()
	e.log.Info("engine stopped")
	e.publish(models.EventStopped, "", nil)
	return nil
}

// Destroy stops the engine, detaches all subscribers, and clears all per-symbol
// state. The engine accepts no further operations afterwards.
func (e *Engine) Destroy() error {
	if err := e.Stop(); err != nil {
		return err
	}

	e.mu.Lock()
	e.destroyed = true
	e.mu.Unlock()

	e.notifier.Clear()
	e.store.Clear()
	e.sumMu.Lock()
	e.lastSummary = nil
	e.sumMu.Unlock()
	e.log.Info("engine destroyed")
	return nil
}

// IsRunning reports whether the scheduler is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// run drives periodic summary generation. A fresh timer per cycle picks up
// interval changes from UpdateConfig without restarting the loop.
func (e *Engine) run(stopCh <-chan struct{}) {
	defer e.wg.Done()
	for {
		timer := time.NewTimer(e.cfg.snapshot().UpdateInterval)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			e.tick()
		}
	}
}

// tick generates and publishes one market summary.
func (e *Engine) tick() {
	start := e.now()
	sum := e.summary.Generate(start)

	e.sumMu.Lock()
	e.lastSummary = sum
	e.sumMu.Unlock()

	e.publish(models.EventSummaryUpdated, "", sum)
	e.metrics.RecordLatency("summary", e.now().Sub(start).Seconds())
}

// GetAggregatedData returns a copy of the record for symbol, or nil when the
// symbol is unknown.
func (e *Engine) GetAggregatedData(symbol string) *models.AggregatedRecord {
	st, ok := e.store.Lookup(symbol)
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	rec := st.recordCopy()
	return &rec
}

// GetAllAggregatedData returns copies of every tracked record.
func (e *Engine) GetAllAggregatedData() []models.AggregatedRecord {
	return e.store.Records()
}

// GetMarketTrend returns the current trend for symbol, or nil.
func (e *Engine) GetMarketTrend(symbol string) *models.MarketTrend {
	st, ok := e.store.Lookup(symbol)
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.trendCopy()
}

// GetAllMarketTrends returns the current trend of every symbol that has one.
func (e *Engine) GetAllMarketTrends() []models.MarketTrend {
	return e.store.Trends()
}

// GetHighConfidenceData returns records at or above the confidence threshold.
func (e *Engine) GetHighConfidenceData() []models.AggregatedRecord {
	threshold := e.cfg.snapshot().ConfidenceThreshold
	var out []models.AggregatedRecord
	for _, rec := range e.store.Records() {
		if rec.Confidence >= threshold {
			out = append(out, rec)
		}
	}
	return out
}

// TrackedSymbols returns every symbol the engine currently tracks.
func (e *Engine) TrackedSymbols() []string {
	return e.store.Symbols()
}

// LastSummary returns the most recently generated market summary, or nil if
// the scheduler has not ticked yet.
func (e *Engine) LastSummary() *models.MarketSummary {
	e.sumMu.RLock()
	defer e.sumMu.RUnlock()
	return e.lastSummary
}

// GenerateSummary produces a summary on demand, outside the scheduler.
func (e *Engine) GenerateSummary() *models.MarketSummary {
	return e.summary.Generate(e.now())
}

// Config returns a copy of the current runtime configuration.
func (e *Engine) Config() models.AggregatorConfig {
	return e.cfg.snapshot()
}

// UpdateConfig merges the recognized options of a partial update.
func (e *Engine) UpdateConfig(u models.ConfigUpdate) error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrEngineDestroyed
	}
	e.mu.Unlock()

	cfg := e.cfg.apply(u)
	e.log.Info("config updated",
		logger.Duration("update_interval", cfg.UpdateInterval),
		logger.Float64("confidence_threshold", cfg.ConfidenceThreshold),
		logger.Duration("max_data_age", cfg.MaxDataAge),
		logger.Bool("technical_analysis", cfg.EnableTechnicalAnalysis))
	e.publish(models.EventConfigUpdated, "", cfg)
	return nil
}

// Subscribe attaches an event subscriber and returns its id.
func (e *Engine) Subscribe(fn Subscriber) int {
	return e.notifier.Subscribe(fn)
}

// Unsubscribe detaches a subscriber by id.
func (e *Engine) Unsubscribe(id int) {
	e.notifier.Unsubscribe(id)
}

func (e *Engine) publish(kind models.EventKind, symbol string, payload interface{}) {
	e.notifier.Publish(&models.Event{
		Kind:      kind,
		Symbol:    symbol,
		Payload:   payload,
		Timestamp: e.now(),
	})
}

func (e *Engine) emitError(errType, msg string) {
	e.publish(models.EventError, "", &models.EngineError{Type: errType, Message: msg})
}
