package indicator

import (
	"fmt"
	"math"
)

// BollingerResult holds the band series of a Bollinger Band calculation.
type BollingerResult struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger calculates Bollinger Bands: a rolling mean middle band with
// upper/lower bands stdDev sample standard deviations away. Indexes before a
// full window are NaN.
func Bollinger(closes []float64, period int, stdDev float64) (*BollingerResult, error) {
	if len(closes) == 0 {
		return nil, fmt.Errorf("closes array cannot be empty")
	}
	if period <= 1 {
		return nil, fmt.Errorf("period must be greater than 1")
	}
	if stdDev <= 0 {
		return nil, fmt.Errorf("stdDev must be positive")
	}

	n := len(closes)
	res := &BollingerResult{
		Middle: make([]float64, n),
		Upper:  make([]float64, n),
		Lower:  make([]float64, n),
	}

	for i := 0; i < n; i++ {
		if i < period-1 {
			res.Middle[i] = math.NaN()
			res.Upper[i] = math.NaN()
			res.Lower[i] = math.NaN()
			continue
		}
		window := closes[i-period+1 : i+1]
		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)

		variance := 0.0
		for _, v := range window {
			variance += (v - mean) * (v - mean)
		}
		// Sample standard deviation (n-1 denominator).
		sd := math.Sqrt(variance / float64(period-1))

		res.Middle[i] = mean
		res.Upper[i] = mean + stdDev*sd
		res.Lower[i] = mean - stdDev*sd
	}
	return res, nil
}

// PercentB calculates %B: where each close sits within its Bollinger Bands.
// 0 is the lower band, 1 the upper. A zero-width band yields 0.5.
func PercentB(closes []float64, bands *BollingerResult) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if math.IsNaN(bands.Upper[i]) || math.IsNaN(bands.Lower[i]) {
			out[i] = math.NaN()
			continue
		}
		width := bands.Upper[i] - bands.Lower[i]
		if width == 0 {
			out[i] = 0.5
			continue
		}
		out[i] = (closes[i] - bands.Lower[i]) / width
	}
	return out
}
