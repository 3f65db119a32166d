package usecase

import (
	"sort"
	"time"

	"MarketPulse/internal/domain/models"
)

const (
	summaryTopN = 5

	// Mean 24h change beyond which the whole market is called directional.
	marketDirectionBand = 1.0
)

// SummaryGenerator produces the ranked market-wide snapshot on each scheduler
// tick. It only reads already-aggregated state.
type SummaryGenerator struct {
	store *StateStore
	cfg   *runtimeConfig
}

func NewSummaryGenerator(store *StateStore, cfg *runtimeConfig) *SummaryGenerator {
	return &SummaryGenerator{store: store, cfg: cfg}
}

// Generate scans all tracked symbols and builds the summary from records that
// are fresh and above the confidence threshold.
func (g *SummaryGenerator) Generate(now time.Time) *models.MarketSummary {
	threshold := g.cfg.snapshot().ConfidenceThreshold

	var qualified []models.AggregatedRecord
	for _, rec := range g.store.Records() {
		if rec.Stale || rec.Confidence < threshold {
			continue
		}
		qualified = append(qualified, rec)
	}

	sum := &models.MarketSummary{
		Direction:   models.TrendNeutral,
		GeneratedAt: now,
	}

	var changeSum float64
	for _, rec := range qualified {
		sum.TotalMarketCap += rec.MarketCap
		sum.TotalVolume24h += rec.Volume24h
		changeSum += rec.Change24h
	}
	if n := len(qualified); n > 0 {
		mean := changeSum / float64(n)
		if mean > marketDirectionBand {
			sum.Direction = models.TrendBullish
		} else if mean < -marketDirectionBand {
			sum.Direction = models.TrendBearish
		}
	}

	sum.TopGainers = topBy(qualified, func(a, b models.AggregatedRecord) bool {
		return a.Change24h > b.Change24h
	})
	sum.TopLosers = topBy(qualified, func(a, b models.AggregatedRecord) bool {
		return a.Change24h < b.Change24h
	})
	sum.MostVolatile = topBy(qualified, func(a, b models.AggregatedRecord) bool {
		return a.Volatility > b.Volatility
	})

	return sum
}

// topBy sorts a copy of recs with the given ordering and returns the first five.
func topBy(recs []models.AggregatedRecord, less func(a, b models.AggregatedRecord) bool) []models.AggregatedRecord {
	sorted := make([]models.AggregatedRecord, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > summaryTopN {
		sorted = sorted[:summaryTopN]
	}
	return sorted
}
