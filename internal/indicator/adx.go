package indicator

import (
	"fmt"
	"math"

	"github.com/cbeeswax/stock-alert/internal/bar"
)

// ADX calculates the Average Directional Index: +DM/-DM with directional
// filtering, rolling-mean DIs over the ATR, then a smoothed DX. Indexes
// before the warmup are NaN.
func ADX(bars []bar.Bar, period, smooth int) ([]float64, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("bars array cannot be empty")
	}
	if period <= 0 || smooth <= 0 {
		return nil, fmt.Errorf("all periods must be positive integers")
	}

	n := len(bars)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up < 0 {
			up = 0
		}
		if down < 0 {
			down = 0
		}
		// Only the dominant directional move counts.
		if up > down {
			plusDM[i] = up
		} else if down > up {
			minusDM[i] = down
		}
	}

	atr, err := SMA(TrueRange(bars), period)
	if err != nil {
		return nil, err
	}
	plusAvg, err := SMA(plusDM, period)
	if err != nil {
		return nil, err
	}
	minusAvg, err := SMA(minusDM, period)
	if err != nil {
		return nil, err
	}

	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(atr[i]) || atr[i] == 0 {
			dx[i] = math.NaN()
			continue
		}
		plusDI := 100 * plusAvg[i] / atr[i]
		minusDI := 100 * minusAvg[i] / atr[i]
		sum := plusDI + minusDI
		if sum == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
	}

	return rollingMeanNaN(dx, smooth), nil
}

// LastADX returns the most recent ADX value, or 0 when unavailable.
func LastADX(bars []bar.Bar, period, smooth int) float64 {
	adx, err := ADX(bars, period, smooth)
	if err != nil || len(adx) == 0 {
		return 0
	}
	last := adx[len(adx)-1]
	if math.IsNaN(last) {
		return 0
	}
	return last
}

// rollingMeanNaN is a rolling mean over a series that may contain NaN
// warmup values: a window with any NaN yields NaN.
func rollingMeanNaN(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if !ok {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(period)
		}
	}
	return out
}
