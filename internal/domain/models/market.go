package models

import "time"

// Signal is the categorical call an indicator makes.
type Signal string

const (
	SignalBuy     Signal = "buy"
	SignalSell    Signal = "sell"
	SignalNeutral Signal = "neutral"
)

// TrendDirection classifies the overall direction of a symbol or the market.
type TrendDirection string

const (
	TrendBullish TrendDirection = "bullish"
	TrendBearish TrendDirection = "bearish"
	TrendNeutral TrendDirection = "neutral"
)

// PriceObservation is one normalized price report from one upstream source.
// Optional 24h fields are pointers: nil means the source did not report them.
type PriceObservation struct {
	Source     string
	Symbol     string
	Price      float64
	Timestamp  time.Time
	Change24h  *float64
	Volume24h  *float64
	MarketCap  *float64
	Volatility *float64
	Stale      bool // staleness from the source's own perspective
}

// SourceRecord tracks the latest contribution of one source to one symbol.
// Weight is fixed at configuration time; only price/timestamp/activity mutate.
type SourceRecord struct {
	Source    string    `json:"source"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Weight    float64   `json:"weight"`
	Active    bool      `json:"active"`
	Stale     bool      `json:"stale"`
}

// AggregatedRecord is the reconciled view of one symbol across all sources.
type AggregatedRecord struct {
	Symbol     string         `json:"symbol"`
	Price      float64        `json:"price"`
	Change24h  float64        `json:"change_24h"`
	Volume24h  float64        `json:"volume_24h"`
	MarketCap  float64        `json:"market_cap"`
	Volatility float64        `json:"volatility"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Sources    []SourceRecord `json:"sources"`
	Confidence float64        `json:"confidence"` // 0-100
	Stale      bool           `json:"stale"`
}

// TechnicalIndicator is one computed indicator value with its signal.
type TechnicalIndicator struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Signal   Signal  `json:"signal"`
	Strength float64 `json:"strength"`
}

// MarketTrend is the directional call for one symbol.
type MarketTrend struct {
	Symbol     string               `json:"symbol"`
	Direction  TrendDirection       `json:"direction"`
	Strength   float64              `json:"strength"` // 0-100
	Timeframe  string               `json:"timeframe"`
	Indicators []TechnicalIndicator `json:"indicators"`
	Timestamp  time.Time            `json:"timestamp"`
}

// MarketSummary is a ranked snapshot across all qualifying symbols.
type MarketSummary struct {
	TotalMarketCap float64            `json:"total_market_cap"`
	TotalVolume24h float64            `json:"total_volume_24h"`
	Direction      TrendDirection     `json:"direction"`
	TopGainers     []AggregatedRecord `json:"top_gainers"`
	TopLosers      []AggregatedRecord `json:"top_losers"`
	MostVolatile   []AggregatedRecord `json:"most_volatile"`
	GeneratedAt    time.Time          `json:"generated_at"`
}
