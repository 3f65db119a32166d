package usecase

import (
	"math"

	"MarketPulse/internal/domain/models"
)

const (
	minHistoryForAnalysis = 20
	smaPeriod             = 20
	rsiPeriod             = 14
	macdFastPeriod        = 12
	macdSlowPeriod        = 26
	macdSignalPeriod      = 9

	rsiOverbought = 70
	rsiOversold   = 30
	rsiNeutral    = 50
)

// IndicatorCalculator derives technical indicators from a symbol's aggregated
// price history. It is stateless; all inputs come from the history buffer.
type IndicatorCalculator struct{}

func NewIndicatorCalculator() *IndicatorCalculator {
	return &IndicatorCalculator{}
}

// Compute returns the indicator set for the given history (oldest to newest),
// or nil when the history is too short for meaningful analysis.
func (c *IndicatorCalculator) Compute(history []float64) []models.TechnicalIndicator {
	if len(history) < minHistoryForAnalysis {
		return nil
	}
	price := history[len(history)-1]

	out := make([]models.TechnicalIndicator, 0, 3)
	out = append(out, c.smaIndicator(history, price))
	out = append(out, c.rsiIndicator(history))
	out = append(out, c.macdIndicator(history, price))
	return out
}

func (c *IndicatorCalculator) smaIndicator(history []float64, price float64) models.TechnicalIndicator {
	sma := SMA(history, smaPeriod)

	ind := models.TechnicalIndicator{Name: "SMA20", Value: sma, Signal: models.SignalNeutral}
	switch {
	case price > sma:
		ind.Signal = models.SignalBuy
	case price < sma:
		ind.Signal = models.SignalSell
	}
	if sma != 0 {
		ind.Strength = math.Abs(price-sma) / sma * 100
	}
	return ind
}

func (c *IndicatorCalculator) rsiIndicator(history []float64) models.TechnicalIndicator {
	rsi := RSI(history, rsiPeriod)

	ind := models.TechnicalIndicator{Name: "RSI14", Value: rsi, Signal: models.SignalNeutral}
	switch {
	case rsi > rsiOverbought:
		ind.Signal = models.SignalSell
		ind.Strength = (rsi - rsiOverbought) / (100 - rsiOverbought) * 100
	case rsi < rsiOversold:
		ind.Signal = models.SignalBuy
		ind.Strength = (rsiOversold - rsi) / rsiOversold * 100
	}
	return ind
}

func (c *IndicatorCalculator) macdIndicator(history []float64, price float64) models.TechnicalIndicator {
	macd, signal := MACD(history)

	ind := models.TechnicalIndicator{Name: "MACD", Value: macd, Signal: models.SignalNeutral}
	switch {
	case macd > signal:
		ind.Signal = models.SignalBuy
	case macd < signal:
		ind.Signal = models.SignalSell
	}
	if price != 0 {
		ind.Strength = math.Abs(macd-signal) / price * 100
	}
	return ind
}

// SMA is the arithmetic mean of the most recent period samples.
func SMA(history []float64, period int) float64 {
	if period <= 0 || len(history) < period {
		return 0
	}
	sum := 0.0
	for _, p := range history[len(history)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// RSI computes the relative strength index over the most recent period deltas.
// Fewer than period+1 samples yields the neutral default of 50.
func RSI(history []float64, period int) float64 {
	if period <= 0 || len(history) < period+1 {
		return rsiNeutral
	}
	window := history[len(history)-period-1:]

	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// EMA computes the exponential moving average over the full series. The first
// sample seeds the average.
func EMA(history []float64, period int) float64 {
	if len(history) == 0 || period <= 0 {
		return 0
	}
	alpha := 2.0 / float64(period+1)
	ema := history[0]
	for _, p := range history[1:] {
		ema = p*alpha + ema*(1-alpha)
	}
	return ema
}

// MACD returns EMA(12)-EMA(26) and its EMA(9)-smoothed signal line. The signal
// line is a true smoothing of the MACD series, computed incrementally in a
// single pass over the history.
func MACD(history []float64) (macd, signal float64) {
	if len(history) == 0 {
		return 0, 0
	}
	fastAlpha := 2.0 / float64(macdFastPeriod+1)
	slowAlpha := 2.0 / float64(macdSlowPeriod+1)
	signalAlpha := 2.0 / float64(macdSignalPeriod+1)

	fast := history[0]
	slow := history[0]
	macd = fast - slow
	signal = macd
	for _, p := range history[1:] {
		fast = p*fastAlpha + fast*(1-fastAlpha)
		slow = p*slowAlpha + slow*(1-slowAlpha)
		macd = fast - slow
		signal = macd*signalAlpha + signal*(1-signalAlpha)
	}
	return macd, signal
}
