package sim

import (
	"math"

	"github.com/cbeeswax/stock-alert/internal/bar"
	"github.com/cbeeswax/stock-alert/internal/indicator"
)

// indicatorSet holds every derived series the exit rules read, computed
// once over the post-entry window and never mutated. Warmup entries are
// NaN; NaN comparisons are false, so a rule that reads an unwarmed value
// simply does not trigger.
type indicatorSet struct {
	closes   []float64
	ema10    []float64
	ema20    []float64
	sma20    []float64
	sma30    []float64
	rsi2     []float64
	rsi14    []float64
	percentB []float64
	atr      []float64
}

func newIndicatorSet(window []bar.Bar) *indicatorSet {
	closes := bar.Closes(window)

	ema10, _ := indicator.EMA(closes, 10)
	ema20, _ := indicator.EMA(closes, 20)
	sma20, _ := indicator.SMA(closes, 20)
	sma30, _ := indicator.SMA(closes, 30)
	rsi2, _ := indicator.RSI(closes, 2)
	rsi14, _ := indicator.RSI(closes, 14)
	atr, _ := indicator.ATR(window, 14)

	percentB := make([]float64, len(closes))
	for i := range percentB {
		percentB[i] = math.NaN()
	}
	if bands, err := indicator.Bollinger(closes, 20, 2); err == nil {
		percentB = indicator.PercentB(closes, bands)
	}

	return &indicatorSet{
		closes:   closes,
		ema10:    ema10,
		ema20:    ema20,
		sma20:    sma20,
		sma30:    sma30,
		rsi2:     rsi2,
		rsi14:    rsi14,
		percentB: percentB,
		atr:      atr,
	}
}

// ma5 is the mean of the last five closes through i, shrinking to
// whatever is available early in the window.
func (s *indicatorSet) ma5(i int) float64 {
	start := i - 4
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, c := range s.closes[start : i+1] {
		sum += c
	}
	return sum / float64(i+1-start)
}

// ema10At guards the short-EMA reads the way the runner rules expect:
// before ten bars of history the value is the close itself, which can
// never sit below itself and so never triggers a breakdown.
func (s *indicatorSet) ema10At(i int) float64 {
	if i < 9 {
		return s.closes[i]
	}
	return s.ema10[i]
}

func (s *indicatorSet) sma20At(i int) float64 {
	if i < 19 {
		return s.closes[i]
	}
	return s.sma20[i]
}

func (s *indicatorSet) sma30At(i int) float64 {
	if i < 29 {
		return s.closes[i]
	}
	return s.sma30[i]
}

// atrAt returns the ATR once warmed, else a 2% proxy of the close.
func (s *indicatorSet) atrAt(i int) float64 {
	if i < 14 || math.IsNaN(s.atr[i]) {
		return s.closes[i] * 0.02
	}
	return s.atr[i]
}
