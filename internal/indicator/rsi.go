package indicator

import (
	"fmt"
	"math"
)

// RSI calculates the Relative Strength Index over closes with the given
// period, using simple rolling means of gains and losses. Indexes before a
// full window are NaN. When the rolling loss is zero the RSI saturates at 100.
func RSI(closes []float64, period int) ([]float64, error) {
	if len(closes) == 0 {
		return nil, fmt.Errorf("closes array cannot be empty")
	}
	if period <= 0 {
		return nil, fmt.Errorf("period must be a positive integer")
	}

	n := len(closes)
	out := make([]float64, n)
	gains := make([]float64, n)
	losses := make([]float64, n)

	out[0] = math.NaN()
	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < n; i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			out[i] = math.NaN()
			continue
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		if avgLoss == 0 {
			out[i] = 100.0
		} else {
			rs := avgGain / avgLoss
			out[i] = 100.0 - 100.0/(1.0+rs)
		}
	}
	return out, nil
}
