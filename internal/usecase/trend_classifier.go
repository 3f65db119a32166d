package usecase

import (
	"time"

	"MarketPulse/internal/domain/models"
)

// change24hVoteBand is the 24h percentage change beyond which the change itself
// casts one directional vote.
const change24hVoteBand = 2.0

// TrendClassifier combines indicator signals and recent price change into a
// directional call with a strength score.
type TrendClassifier struct{}

func NewTrendClassifier() *TrendClassifier {
	return &TrendClassifier{}
}

// Classify derives the trend for a symbol from its indicator set and 24h change.
func (t *TrendClassifier) Classify(symbol string, indicators []models.TechnicalIndicator, change24h float64, now time.Time) *models.MarketTrend {
	var bullish, bearish int
	var strengthSum float64
	for _, ind := range indicators {
		switch ind.Signal {
		case models.SignalBuy:
			bullish++
		case models.SignalSell:
			bearish++
		}
		strengthSum += ind.Strength
	}

	if change24h > change24hVoteBand {
		bullish++
	} else if change24h < -change24hVoteBand {
		bearish++
	}

	direction := models.TrendNeutral
	switch {
	case bullish > bearish:
		direction = models.TrendBullish
	case bearish > bullish:
		direction = models.TrendBearish
	}

	strength := 0.0
	if len(indicators) > 0 {
		strength = strengthSum / float64(len(indicators))
	}
	if direction == models.TrendNeutral {
		strength /= 2
	}
	if strength > 100 {
		strength = 100
	}

	inds := make([]models.TechnicalIndicator, len(indicators))
	copy(inds, indicators)

	return &models.MarketTrend{
		Symbol:     symbol,
		Direction:  direction,
		Strength:   strength,
		Timeframe:  "short-term",
		Indicators: inds,
		Timestamp:  now,
	}
}
