package indicator

import "math"

// RollingMax returns the max of the trailing window ending at each index.
// Windows shorter than period use whatever is available.
func RollingMax(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		m := math.Inf(-1)
		for j := start; j <= i; j++ {
			if values[j] > m {
				m = values[j]
			}
		}
		out[i] = m
	}
	return out
}

// RollingMin returns the min of the trailing window ending at each index.
// Windows shorter than period use whatever is available.
func RollingMin(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		m := math.Inf(1)
		for j := start; j <= i; j++ {
			if values[j] < m {
				m = values[j]
			}
		}
		out[i] = m
	}
	return out
}

// WindowMax returns the maximum of the last n values, or of all values when
// fewer than n exist. Returns 0 for an empty slice.
func WindowMax(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	m := values[start]
	for _, v := range values[start+1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// WindowMin returns the minimum of the last n values, or of all values when
// fewer than n exist. Returns 0 for an empty slice.
func WindowMin(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	m := values[start]
	for _, v := range values[start+1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// WindowMean returns the mean of the last n values, or of all values when
// fewer than n exist. Returns NaN for an empty slice.
func WindowMean(values []float64, n int) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, v := range values[start:] {
		sum += v
	}
	return sum / float64(len(values)-start)
}
