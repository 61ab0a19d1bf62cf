// Package regime classifies the benchmark trend as bull, sideways, or bear.
// The scanner uses the label to gate breakout strategies: buying strength
// into a declining index is how breakout families bleed.
package regime

import (
	"math"

	"github.com/cbeeswax/stock-alert/internal/bar"
	"github.com/cbeeswax/stock-alert/internal/indicator"
)

// Label is the coarse market-trend classification.
type Label string

const (
	Bull     Label = "bull"
	Sideways Label = "sideways"
	Bear     Label = "bear"
)

// Params holds the classifier thresholds.
type Params struct {
	MAPeriod       int     // long-term trend MA
	SlopeLookback  int     // days for the MA slope check
	ADXPeriod      int     // ADX calculation window
	ADXSmooth      int     // ADX smoothing window
	SidewaysADXMax float64 // below this, the trend is too weak to call
}

// DefaultParams returns the production thresholds.
func DefaultParams() Params {
	return Params{
		MAPeriod:       200,
		SlopeLookback:  20,
		ADXPeriod:      14,
		ADXSmooth:      14,
		SidewaysADXMax: 25,
	}
}

// Classify labels the regime from index bars already truncated to the as-of
// date:
//
//	bull:     close above a rising long MA
//	bear:     close below a flat-or-falling long MA with a strong trend
//	sideways: everything else, including insufficient history
func Classify(bars []bar.Bar, p Params) Label {
	if len(bars) < p.MAPeriod {
		return Sideways
	}

	closes := bar.Closes(bars)
	ma, err := indicator.SMA(closes, p.MAPeriod)
	if err != nil {
		return Sideways
	}

	maCurrent := ma[len(ma)-1]
	price := closes[len(closes)-1]
	if math.IsNaN(maCurrent) {
		return Sideways
	}

	maRising := false
	if len(ma) > p.SlopeLookback {
		maPast := ma[len(ma)-1-p.SlopeLookback]
		maRising = !math.IsNaN(maPast) && maCurrent > maPast
	}

	adx := indicator.LastADX(bars, p.ADXPeriod, p.ADXSmooth)
	strongTrend := adx >= p.SidewaysADXMax

	switch {
	case price > maCurrent && maRising:
		return Bull
	case price < maCurrent && !maRising && strongTrend:
		return Bear
	default:
		return Sideways
	}
}
