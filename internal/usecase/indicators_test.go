package usecase

import (
	"math"
	"testing"
)

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func falling(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 - float64(i)
	}
	return out
}

func TestSMA(t *testing.T) {
	h := []float64{1, 2, 3, 4, 5}
	if got := SMA(h, 5); got != 3 {
		t.Fatalf("SMA = %v, want 3", got)
	}
	if got := SMA(h, 2); got != 4.5 {
		t.Fatalf("SMA over last 2 = %v, want 4.5", got)
	}
	if got := SMA(h, 10); got != 0 {
		t.Fatalf("SMA with short history = %v, want 0", got)
	}
}

func TestRSIStrictlyIncreasing(t *testing.T) {
	if got := RSI(rising(30), rsiPeriod); got != 100 {
		t.Fatalf("RSI of strictly increasing series = %v, want 100", got)
	}
}

func TestRSIStrictlyDecreasing(t *testing.T) {
	if got := RSI(falling(30), rsiPeriod); got != 0 {
		t.Fatalf("RSI of strictly decreasing series = %v, want 0", got)
	}
}

func TestRSIShortHistoryNeutral(t *testing.T) {
	if got := RSI(rising(10), rsiPeriod); got != rsiNeutral {
		t.Fatalf("RSI with short history = %v, want %v", got, float64(rsiNeutral))
	}
}

func TestRSIRange(t *testing.T) {
	h := []float64{100, 103, 99, 104, 98, 105, 97, 106, 96, 107, 95, 108, 94, 109, 93, 110}
	got := RSI(h, rsiPeriod)
	if got < 0 || got > 100 {
		t.Fatalf("RSI %v out of [0,100]", got)
	}
}

func TestEMASeededByFirstSample(t *testing.T) {
	if got := EMA([]float64{42}, 10); got != 42 {
		t.Fatalf("EMA of single sample = %v, want 42", got)
	}
	// alpha = 2/3 for period 2: 10, then 0.666*20 + 0.333*10 = 16.666...
	got := EMA([]float64{10, 20}, 2)
	want := 20*(2.0/3) + 10*(1.0/3)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("EMA = %v, want %v", got, want)
	}
}

func TestMACDRisingSeries(t *testing.T) {
	macd, signal := MACD(rising(60))
	if macd <= 0 {
		t.Fatalf("MACD of rising series must be positive, got %v", macd)
	}
	if math.IsNaN(signal) || math.IsInf(signal, 0) {
		t.Fatalf("signal not finite: %v", signal)
	}
}

func TestMACDFlatSeries(t *testing.T) {
	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 100
	}
	macd, signal := MACD(flat)
	if macd != 0 || signal != 0 {
		t.Fatalf("MACD of flat series = (%v, %v), want (0, 0)", macd, signal)
	}
}

func TestComputeShortHistory(t *testing.T) {
	c := NewIndicatorCalculator()
	if got := c.Compute(rising(minHistoryForAnalysis - 1)); got != nil {
		t.Fatalf("expected nil for short history, got %v", got)
	}
}

func TestComputeIndicatorSet(t *testing.T) {
	c := NewIndicatorCalculator()
	inds := c.Compute(rising(40))
	if len(inds) != 3 {
		t.Fatalf("expected 3 indicators, got %d", len(inds))
	}
	names := map[string]bool{}
	for _, ind := range inds {
		names[ind.Name] = true
		if ind.Strength < 0 {
			t.Fatalf("%s strength negative: %v", ind.Name, ind.Strength)
		}
	}
	for _, want := range []string{"SMA20", "RSI14", "MACD"} {
		if !names[want] {
			t.Fatalf("missing indicator %s", want)
		}
	}
}
