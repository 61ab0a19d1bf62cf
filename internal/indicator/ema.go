// Package indicator provides technical analysis indicators for daily equity series
package indicator

import (
	"fmt"
	"math"
)

// EMA calculates an exponential moving average over values with the given span.
// The series is seeded from the first value, so every index holds a value
// (early entries are simply less smoothed), matching the exponentially
// weighted mean most charting platforms produce.
func EMA(values []float64, span int) ([]float64, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("values array cannot be empty")
	}
	if span <= 0 {
		return nil, fmt.Errorf("span must be a positive integer")
	}

	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}

// SMA calculates a simple moving average over values with the given period.
// Indexes before a full window are NaN.
func SMA(values []float64, period int) ([]float64, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("values array cannot be empty")
	}
	if period <= 0 {
		return nil, fmt.Errorf("period must be a positive integer")
	}

	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}
