package indicator

import (
	"fmt"
	"math"

	"github.com/cbeeswax/stock-alert/internal/bar"
)

// TrueRange computes the per-bar true range series. The first bar falls back
// to high minus low because there is no prior close.
func TrueRange(bars []bar.Bar) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		hl := b.High - b.Low
		if i == 0 {
			tr[i] = hl
			continue
		}
		prevClose := bars[i-1].Close
		hc := math.Abs(b.High - prevClose)
		lc := math.Abs(b.Low - prevClose)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// ATR calculates the Average True Range as a rolling mean of the true range.
// Indexes before a full window are NaN.
func ATR(bars []bar.Bar, period int) ([]float64, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("bars array cannot be empty")
	}
	if period <= 0 {
		return nil, fmt.Errorf("period must be a positive integer")
	}
	return SMA(TrueRange(bars), period)
}

// LastATR returns the most recent ATR value, or 0 when the series is too
// short for a full window.
func LastATR(bars []bar.Bar, period int) float64 {
	atr, err := ATR(bars, period)
	if err != nil || len(atr) == 0 {
		return 0
	}
	last := atr[len(atr)-1]
	if math.IsNaN(last) {
		return 0
	}
	return last
}
