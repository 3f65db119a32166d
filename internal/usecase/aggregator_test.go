package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

func newTestAggregator(cfg models.AggregatorConfig) (*PriceAggregator, *StateStore, *Notifier) {
	store := NewStateStore()
	notifier := NewNotifier()
	agg := NewPriceAggregator(store, newRuntimeConfig(cfg), notifier, nopMetrics{})
	return agg, store, notifier
}

func currentRecord(t *testing.T, store *StateStore, symbol string) models.AggregatedRecord {
	t.Helper()
	st, ok := store.Lookup(symbol)
	if !ok {
		t.Fatalf("symbol %s not tracked", symbol)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.recordCopy()
}

func TestWeightedAggregation(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTechnicalAnalysis = false
	cfg.Sources = map[string]models.SourceSetting{
		"oracle": {Enabled: true, Weight: 0.6},
		"stream": {Enabled: true, Weight: 0.3},
	}
	agg, store, _ := newTestAggregator(cfg)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return t0 }

	ctx := context.Background()
	if err := agg.Process(ctx, &models.PriceObservation{Source: "oracle", Symbol: "BTC", Price: 100, Timestamp: t0}); err != nil {
		t.Fatalf("process oracle: %v", err)
	}
	if err := agg.Process(ctx, &models.PriceObservation{Source: "stream", Symbol: "BTC", Price: 102, Timestamp: t0}); err != nil {
		t.Fatalf("process stream: %v", err)
	}

	rec := currentRecord(t, store, "BTC")
	want := (100*0.6 + 102*0.3) / 0.9
	if math.Abs(rec.Price-want) > 1e-9 {
		t.Fatalf("price = %v, want %v", rec.Price, want)
	}
	if rec.Stale {
		t.Fatalf("record unexpectedly stale")
	}
	if len(rec.Sources) != 2 {
		t.Fatalf("expected 2 source records, got %d", len(rec.Sources))
	}
}

func TestUnknownSourceGetsDefaultWeight(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTechnicalAnalysis = false
	agg, store, _ := newTestAggregator(cfg)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return t0 }

	ctx := context.Background()
	agg.Process(ctx, &models.PriceObservation{Source: "a", Symbol: "ETH", Price: 100, Timestamp: t0})
	agg.Process(ctx, &models.PriceObservation{Source: "b", Symbol: "ETH", Price: 200, Timestamp: t0})

	rec := currentRecord(t, store, "ETH")
	if math.Abs(rec.Price-150) > 1e-9 {
		t.Fatalf("equal default weights should average: got %v", rec.Price)
	}
}

func TestZeroWeightSourceCountsTowardConfidence(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTechnicalAnalysis = false
	cfg.Sources = map[string]models.SourceSetting{
		"a": {Enabled: true, Weight: 0},
		"b": {Enabled: true, Weight: 0.5},
	}
	agg, store, _ := newTestAggregator(cfg)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return t0 }

	ctx := context.Background()
	agg.Process(ctx, &models.PriceObservation{Source: "a", Symbol: "BTC", Price: 100, Timestamp: t0})
	agg.Process(ctx, &models.PriceObservation{Source: "b", Symbol: "BTC", Price: 200, Timestamp: t0})

	rec := currentRecord(t, store, "BTC")

	// only the weighted source moves the price
	if math.Abs(rec.Price-200) > 1e-9 {
		t.Fatalf("price = %v, want 200 (zero-weight source must not shift the mean)", rec.Price)
	}
	for _, src := range rec.Sources {
		if !src.Active {
			t.Fatalf("source %s inactive; activity depends on staleness and age only", src.Source)
		}
	}
	// coverage 2/2 -> 40, freshness full -> 30, consistency over [100,200]:
	// stddev 50 / mean 150 -> (1-1/3)*30 = 20. Total 90.
	if math.Abs(rec.Confidence-90) > 1e-9 {
		t.Fatalf("confidence = %v, want 90", rec.Confidence)
	}
	if rec.Stale {
		t.Fatalf("record unexpectedly stale")
	}
}

func TestAllZeroWeightSourcesKeepLastPrice(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTechnicalAnalysis = false
	cfg.Sources = map[string]models.SourceSetting{
		"a": {Enabled: true, Weight: 0},
	}
	agg, store, _ := newTestAggregator(cfg)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return t0 }

	agg.Process(context.Background(), &models.PriceObservation{Source: "a", Symbol: "BTC", Price: 100, Timestamp: t0})

	rec := currentRecord(t, store, "BTC")
	if rec.Stale {
		t.Fatalf("active zero-weight source must keep the record fresh")
	}
	if rec.Price != 0 {
		t.Fatalf("price = %v, want 0 (no weighted source has ever contributed)", rec.Price)
	}
}

func TestDisabledSourceDropped(t *testing.T) {
	cfg := testConfig()
	cfg.Sources = map[string]models.SourceSetting{
		"oracle": {Enabled: false, Weight: 0.6},
	}
	agg, store, _ := newTestAggregator(cfg)

	if err := agg.Process(context.Background(), &models.PriceObservation{Source: "oracle", Symbol: "BTC", Price: 100}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, ok := store.Lookup("BTC"); ok {
		t.Fatalf("disabled source must not create state")
	}
}

func TestMalformedObservationsDropped(t *testing.T) {
	store := NewStateStore()
	m := newCaptureMetrics()
	agg := NewPriceAggregator(store, newRuntimeConfig(testConfig()), NewNotifier(), m)
	ctx := context.Background()

	cases := []*models.PriceObservation{
		nil,
		{Source: "oracle", Symbol: "", Price: 100},
		{Source: "oracle", Symbol: "BTC", Price: math.NaN()},
		{Source: "oracle", Symbol: "BTC", Price: math.Inf(1)},
		{Source: "oracle", Symbol: "BTC", Price: -1},
	}
	for i, obs := range cases {
		if err := agg.Process(ctx, obs); err != nil {
			t.Fatalf("case %d: drop must be silent, got %v", i, err)
		}
	}
	if _, ok := store.Lookup("BTC"); ok {
		t.Fatalf("malformed observations must not create state")
	}
	if got := m.errorCount("malformed_observation"); got != len(cases) {
		t.Fatalf("expected %d malformed drops recorded, got %d", len(cases), got)
	}
}

func TestSingleSourceConfidence(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTechnicalAnalysis = false
	cfg.Sources = map[string]models.SourceSetting{
		"oracle": {Enabled: true, Weight: 0.6},
	}
	agg, store, _ := newTestAggregator(cfg)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return t0 }

	agg.Process(context.Background(), &models.PriceObservation{Source: "oracle", Symbol: "BTC", Price: 100, Timestamp: t0})

	rec := currentRecord(t, store, "BTC")
	// Full coverage (40) + full freshness (30) + single-source consistency (15).
	if math.Abs(rec.Confidence-85) > 1e-9 {
		t.Fatalf("confidence = %v, want 85", rec.Confidence)
	}
}

func TestConfidenceWithinBounds(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTechnicalAnalysis = false
	agg, store, _ := newTestAggregator(cfg)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return t0 }

	ctx := context.Background()
	// Wildly divergent prices drive the consistency term to its floor.
	agg.Process(ctx, &models.PriceObservation{Source: "a", Symbol: "XRP", Price: 1, Timestamp: t0})
	agg.Process(ctx, &models.PriceObservation{Source: "b", Symbol: "XRP", Price: 1000, Timestamp: t0})

	rec := currentRecord(t, store, "XRP")
	if rec.Confidence < 0 || rec.Confidence > 100 {
		t.Fatalf("confidence %v out of [0,100]", rec.Confidence)
	}
}

func TestStaleTransitionPreservesPrice(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTechnicalAnalysis = false
	cfg.MaxDataAge = time.Minute
	agg, store, _ := newTestAggregator(cfg)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	agg.now = func() time.Time { return now }

	ctx := context.Background()
	agg.Process(ctx, &models.PriceObservation{Source: "oracle", Symbol: "BTC", Price: 100, Timestamp: t0})
	if rec := currentRecord(t, store, "BTC"); rec.Stale {
		t.Fatalf("fresh record must not be stale")
	}

	// The same source reports again, but its data is now past MaxDataAge.
	now = t0.Add(2 * time.Minute)
	agg.Process(ctx, &models.PriceObservation{Source: "oracle", Symbol: "BTC", Price: 200, Timestamp: t0})

	rec := currentRecord(t, store, "BTC")
	if !rec.Stale {
		t.Fatalf("record must be stale once every source aged out")
	}
	if rec.Price != 100 {
		t.Fatalf("stale record must keep last computed price, got %v", rec.Price)
	}
}

func TestSourceStaleFlagExcludesFromAggregation(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTechnicalAnalysis = false
	agg, store, _ := newTestAggregator(cfg)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return t0 }

	ctx := context.Background()
	agg.Process(ctx, &models.PriceObservation{Source: "a", Symbol: "SOL", Price: 100, Timestamp: t0})
	agg.Process(ctx, &models.PriceObservation{Source: "b", Symbol: "SOL", Price: 500, Timestamp: t0, Stale: true})

	rec := currentRecord(t, store, "SOL")
	if rec.Price != 100 {
		t.Fatalf("self-declared stale source must not contribute, got price %v", rec.Price)
	}
}

func TestPassThroughFields(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTechnicalAnalysis = false
	agg, store, _ := newTestAggregator(cfg)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return t0 }

	agg.Process(context.Background(), &models.PriceObservation{
		Source: "oracle", Symbol: "BTC", Price: 100, Timestamp: t0,
		Change24h: fptr(3.5), Volume24h: fptr(1e9), MarketCap: fptr(2e12), Volatility: fptr(0.8),
	})

	rec := currentRecord(t, store, "BTC")
	if rec.Change24h != 3.5 || rec.Volume24h != 1e9 || rec.MarketCap != 2e12 || rec.Volatility != 0.8 {
		t.Fatalf("pass-through fields not applied: %+v", rec)
	}
}

func TestProcessPublishesDataUpdated(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTechnicalAnalysis = false
	agg, _, notifier := newTestAggregator(cfg)

	var got []*models.Event
	notifier.Subscribe(func(ev *models.Event) { got = append(got, ev) })

	agg.Process(context.Background(), &models.PriceObservation{Source: "oracle", Symbol: "BTC", Price: 100})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Kind != models.EventDataUpdated {
		t.Fatalf("unexpected event kind %q", got[0].Kind)
	}
	rec, ok := got[0].Payload.(*models.AggregatedRecord)
	if !ok || rec.Symbol != "BTC" {
		t.Fatalf("unexpected payload %#v", got[0].Payload)
	}
}

func TestTrendPublishedOnceHistorySuffices(t *testing.T) {
	cfg := testConfig()
	cfg.Sources = map[string]models.SourceSetting{"oracle": {Enabled: true, Weight: 1}}
	agg, store, notifier := newTestAggregator(cfg)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	agg.now = func() time.Time { return now }

	var trendEvents int
	notifier.Subscribe(func(ev *models.Event) {
		if ev.Kind == models.EventTrendUpdated {
			trendEvents++
		}
	})

	ctx := context.Background()
	for i := 0; i < 25; i++ {
		now = t0.Add(time.Duration(i) * time.Second)
		agg.Process(ctx, &models.PriceObservation{Source: "oracle", Symbol: "BTC", Price: 100 + float64(i), Timestamp: now})
	}

	if trendEvents == 0 {
		t.Fatalf("expected trend events after history filled")
	}
	st, _ := store.Lookup("BTC")
	st.mu.Lock()
	trend := st.trendCopy()
	st.mu.Unlock()
	if trend == nil {
		t.Fatalf("expected trend to be recorded")
	}
	if trend.Direction != models.TrendBullish {
		t.Fatalf("rising series should classify bullish, got %s", trend.Direction)
	}
	if len(trend.Indicators) != 3 {
		t.Fatalf("expected 3 indicators, got %d", len(trend.Indicators))
	}
}

func TestConfigUpdateMerges(t *testing.T) {
	rc := newRuntimeConfig(testConfig())

	threshold := 90.0
	interval := 5 * time.Second
	got := rc.apply(models.ConfigUpdate{
		ConfidenceThreshold: &threshold,
		UpdateInterval:      &interval,
		Sources:             map[string]models.SourceSetting{"oracle": {Enabled: true, Weight: 0.9}},
	})

	if got.ConfidenceThreshold != 90 {
		t.Fatalf("threshold = %v", got.ConfidenceThreshold)
	}
	if got.UpdateInterval != 5*time.Second {
		t.Fatalf("interval = %v", got.UpdateInterval)
	}
	if got.Sources["oracle"].Weight != 0.9 {
		t.Fatalf("source weight = %v", got.Sources["oracle"].Weight)
	}
	// Unmentioned fields keep defaults.
	if got.MaxDataAge != time.Minute {
		t.Fatalf("max data age = %v", got.MaxDataAge)
	}
}

func TestConfigUpdateRejectsNonPositiveDurations(t *testing.T) {
	rc := newRuntimeConfig(testConfig())
	bad := -time.Second
	got := rc.apply(models.ConfigUpdate{UpdateInterval: &bad, MaxDataAge: &bad})
	if got.UpdateInterval != time.Hour || got.MaxDataAge != time.Minute {
		t.Fatalf("non-positive durations must be ignored: %+v", got)
	}
}
