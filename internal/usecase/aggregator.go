package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
)

// defaultSourceWeight applies to sources that appear on the wire without a
// configured weight.
const defaultSourceWeight = 0.5

// runtimeConfig guards the engine configuration for concurrent readers.
type runtimeConfig struct {
	mu sync.RWMutex
	c  models.AggregatorConfig
}

func newRuntimeConfig(c models.AggregatorConfig) *runtimeConfig {
	return &runtimeConfig{c: c.Clone()}
}

func (r *runtimeConfig) snapshot() models.AggregatorConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.c.Clone()
}

// apply merges a partial update and returns the resulting config.
func (r *runtimeConfig) apply(u models.ConfigUpdate) models.AggregatorConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.UpdateInterval != nil && *u.UpdateInterval > 0 {
		r.c.UpdateInterval = *u.UpdateInterval
	}
	if u.ConfidenceThreshold != nil {
		r.c.ConfidenceThreshold = *u.ConfidenceThreshold
	}
	if u.MaxDataAge != nil && *u.MaxDataAge > 0 {
		r.c.MaxDataAge = *u.MaxDataAge
	}
	if u.EnableTechnicalAnalysis != nil {
		r.c.EnableTechnicalAnalysis = *u.EnableTechnicalAnalysis
	}
	for name, s := range u.Sources {
		r.c.Sources[name] = s
	}
	return r.c.Clone()
}

// PriceAggregator is the ingestion boundary: it upserts the per-source record
// and synchronously recomputes the weighted price, confidence score, and, when
// enabled, the technical indicators and trend for that symbol.
type PriceAggregator struct {
	store      *StateStore
	cfg        *runtimeConfig
	notifier   *Notifier
	metrics    drepo.Metrics
	indicators *IndicatorCalculator
	classifier *TrendClassifier
	now        func() time.Time
}

func NewPriceAggregator(store *StateStore, cfg *runtimeConfig, notifier *Notifier, metrics drepo.Metrics) *PriceAggregator {
	return &PriceAggregator{
		store:      store,
		cfg:        cfg,
		notifier:   notifier,
		metrics:    metrics,
		indicators: NewIndicatorCalculator(),
		classifier: NewTrendClassifier(),
		now:        time.Now,
	}
}

// Process ingests one observation. Malformed observations are dropped silently;
// the error return exists only to satisfy the pipeline contract and is nil on
// drops.
func (a *PriceAggregator) Process(ctx context.Context, obs *models.PriceObservation) error {
	start := a.now()

	if !validObservation(obs) {
		a.metrics.RecordError("malformed_observation")
		return nil
	}

	cfg := a.cfg.snapshot()
	weight := defaultSourceWeight
	if s, ok := cfg.Sources[obs.Source]; ok {
		if !s.Enabled {
			return nil
		}
		weight = s.Weight
	}

	st := a.store.Ensure(obs.Symbol)
	st.mu.Lock()

	a.upsertSource(st, obs, weight)
	now := a.now()
	a.recompute(st, obs, cfg, now)

	rec := st.recordCopy()
	var trend *models.MarketTrend
	if cfg.EnableTechnicalAnalysis && !rec.Stale {
		st.appendHistory(rec.Price)
		if inds := a.indicators.Compute(st.history); inds != nil {
			st.trend = a.classifier.Classify(rec.Symbol, inds, rec.Change24h, now)
			trend = st.trendCopy()
		}
	}
	st.mu.Unlock()

	a.metrics.RecordObservation(obs.Source, obs.Symbol)
	a.metrics.RecordAggregatedPrice(rec.Symbol, rec.Price)
	a.metrics.RecordConfidence(rec.Symbol, rec.Confidence)

	a.notifier.Publish(&models.Event{
		Kind:      models.EventDataUpdated,
		Symbol:    rec.Symbol,
		Payload:   &rec,
		Timestamp: now,
	})
	if trend != nil {
		a.notifier.Publish(&models.Event{
			Kind:      models.EventTrendUpdated,
			Symbol:    rec.Symbol,
			Payload:   trend,
			Timestamp: now,
		})
	}

	a.metrics.RecordLatency("ingest", a.now().Sub(start).Seconds())
	return nil
}

func validObservation(obs *models.PriceObservation) bool {
	if obs == nil || obs.Symbol == "" {
		return false
	}
	if math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) || obs.Price < 0 {
		return false
	}
	return true
}

// upsertSource updates or inserts the per-source record. Weight stays fixed for
// an existing record. Caller must hold st.mu.
func (a *PriceAggregator) upsertSource(st *symbolState, obs *models.PriceObservation, weight float64) {
	ts := obs.Timestamp
	if ts.IsZero() {
		ts = a.now()
	}
	if i := st.sourceIndex(obs.Source); i >= 0 {
		src := &st.record.Sources[i]
		src.Price = obs.Price
		src.Timestamp = ts
		src.Stale = obs.Stale
		return
	}
	st.record.Sources = append(st.record.Sources, models.SourceRecord{
		Source:    obs.Source,
		Price:     obs.Price,
		Timestamp: ts,
		Weight:    weight,
		Stale:     obs.Stale,
	})
}

// recompute refreshes activity flags, the weighted price, the pass-through 24h
// fields, and the confidence score. Caller must hold st.mu.
func (a *PriceAggregator) recompute(st *symbolState, obs *models.PriceObservation, cfg models.AggregatorConfig, now time.Time) {
	rec := &st.record

	var active int
	var weightSum, weightedPrice float64
	activePrices := make([]float64, 0, len(rec.Sources))
	for i := range rec.Sources {
		src := &rec.Sources[i]
		src.Active = !src.Stale && now.Sub(src.Timestamp) < cfg.MaxDataAge
		if !src.Active {
			continue
		}
		// Activity is a function of staleness and age only. A zero-weight
		// source still counts toward coverage and consistency; it just
		// contributes nothing to the weighted mean.
		active++
		activePrices = append(activePrices, src.Price)
		if src.Weight > 0 {
			weightSum += src.Weight
			weightedPrice += src.Price * src.Weight
		}
	}

	if active > 0 {
		if weightSum > 0 {
			rec.Price = weightedPrice / weightSum
		}
		rec.Stale = false
		rec.UpdatedAt = now
	} else {
		// Price is left at its last computed value.
		rec.Stale = true
	}

	if obs.Change24h != nil {
		rec.Change24h = *obs.Change24h
	}
	if obs.Volume24h != nil {
		rec.Volume24h = *obs.Volume24h
	}
	if obs.MarketCap != nil {
		rec.MarketCap = *obs.MarketCap
	}
	if obs.Volatility != nil {
		rec.Volatility = *obs.Volatility
	}

	rec.Confidence = confidenceScore(rec, active, activePrices, cfg.MaxDataAge, now)
}

// confidenceScore sums the coverage, freshness, and consistency terms and
// clamps the result to [0,100].
func confidenceScore(rec *models.AggregatedRecord, active int, activePrices []float64, maxAge time.Duration, now time.Time) float64 {
	score := 0.0

	// Coverage: up to 40 points for full source participation.
	if total := len(rec.Sources); total > 0 {
		score += float64(active) / float64(total) * 40
	}

	// Freshness: up to 30 points, decaying linearly over maxAge.
	if maxAge > 0 && !rec.UpdatedAt.IsZero() {
		fresh := 1 - now.Sub(rec.UpdatedAt).Seconds()/maxAge.Seconds()
		if fresh < 0 {
			fresh = 0
		}
		score += fresh * 30
	}

	// Consistency: up to 30 points for cross-source agreement. A single active
	// source gets half credit since there is nothing to cross-check against.
	switch {
	case active >= 2:
		mean := 0.0
		for _, p := range activePrices {
			mean += p
		}
		mean /= float64(len(activePrices))
		if mean > 0 {
			variance := 0.0
			for _, p := range activePrices {
				variance += (p - mean) * (p - mean)
			}
			stddev := math.Sqrt(variance / float64(len(activePrices)))
			consistency := 1 - stddev/mean
			if consistency < 0 {
				consistency = 0
			}
			score += consistency * 30
		}
	case active == 1:
		score += 15
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
