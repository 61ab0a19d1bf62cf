// Package sim replays a single admitted trade bar-by-bar against forward
// price action. It is the heart of the backtest: entry confirmation,
// partial profit-taking, trailing stops, and the per-family exit state
// machines all live here. No decision may read a bar beyond the one
// currently being replayed.
package sim

import (
	"time"

	"github.com/cbeeswax/stock-alert/internal/bar"
	"github.com/cbeeswax/stock-alert/internal/config"
	"github.com/cbeeswax/stock-alert/internal/indicator"
	"github.com/cbeeswax/stock-alert/internal/prebuy"
	"github.com/cbeeswax/stock-alert/internal/scanner"
	"github.com/cbeeswax/stock-alert/internal/strategy"
)

// riskEpsilon floors the R-multiple divisor so a stop at the entry price
// cannot blow up the division.
const riskEpsilon = 0.01

// PositionType labels an outcome row's share of the trade.
type PositionType string

const (
	PositionFull    PositionType = "Full"
	PositionPartial PositionType = "Partial"
	PositionRunner  PositionType = "Runner"
)

// Result classifies how an outcome row ended.
type Result string

const (
	ResultWin          Result = "Win"
	ResultLoss         Result = "Loss"
	ResultPartialWin   Result = "PartialWin"
	ResultTimeExit     Result = "TimeExit"
	ResultEMABreakdown Result = "EMABreakdown"
)

// Outcome is one append-only trade-ledger row. A trade yields one Full row,
// or a Partial row followed by a Runner row covering disjoint fractions.
type Outcome struct {
	Ticker          string
	Strategy        strategy.Name
	PositionType    PositionType
	PartialTrigger  string
	CrossoverType   string
	CrossoverBonus  float64
	Score           float64
	EntryDate       time.Time
	EntryPrice      float64
	ExitPrice       float64
	Result          Result
	ExitReason      string
	RMultiple       float64
	PnLDollars      float64
	HoldingDays     int
	PositionSizePct float64
	InitialStop     float64
	Target          float64
}

// Simulate replays one admitted trade against the ticker's full history.
// History must be the complete ascending bar series; the simulator itself
// splits it at the trade's scan date so no future bar can leak into entry
// resolution. Returns zero outcomes when the trade never enters (failed
// confirmation, no forward data) and one or two rows otherwise.
func Simulate(trade prebuy.AdmittedTrade, history []bar.Bar, cfg config.SimConfig) []Outcome {
	forward := bar.After(history, trade.AsOf)
	if len(forward) == 0 {
		return nil
	}

	r := &replay{trade: trade, cfg: cfg}
	r.maxHolding = maxHoldingFor(trade, cfg)

	if !r.resolveEntry(history, forward) {
		return nil
	}
	if len(r.window) > r.maxHolding {
		r.window = r.window[:r.maxHolding]
	}
	if len(r.window) == 0 {
		return nil
	}
	r.ind = newIndicatorSet(r.window)

	final := r.run()

	outcomes := make([]Outcome, 0, 2)
	if r.partial != nil {
		outcomes = append(outcomes, *r.partial)
	}
	return append(outcomes, final)
}

func maxHoldingFor(trade prebuy.AdmittedTrade, cfg config.SimConfig) int {
	if trade.MaxDays > 0 {
		return trade.MaxDays
	}
	switch strategy.FamilyOf(trade.Strategy) {
	case strategy.FamilyMeanReversion:
		return cfg.MaxHoldingMeanReversion
	case strategy.FamilySwing:
		return cfg.Swing.MaxHoldingDays
	default:
		return cfg.MaxHoldingMomentum
	}
}

// replay carries the running state of one trade through the forward window.
type replay struct {
	trade      prebuy.AdmittedTrade
	cfg        config.SimConfig
	window     []bar.Bar
	ind        *indicatorSet
	maxHolding int

	entryDate   time.Time
	entry       float64
	initialStop float64
	target      float64
	risk        float64

	stop          float64
	highest       float64
	partialExited bool
	remaining     float64
	partial       *Outcome
}

// resolveEntry turns the proposed trade into an actual entry, or rejects
// it. Swing trades enter immediately at the signal close with an
// ATR-derived stop; confirmation-requiring strategies wait for the next
// bar to validate the signal and enter at its open with the original risk
// preserved.
func (r *replay) resolveEntry(history, forward []bar.Bar) bool {
	trade := r.trade
	signalBars := bar.Through(history, trade.AsOf)

	switch {
	case strategy.FamilyOf(trade.Strategy) == strategy.FamilySwing:
		if trade.ATREntry <= 0 {
			return false
		}
		r.entry = trade.Entry
		r.entryDate = trade.AsOf
		r.initialStop = r.entry - r.cfg.Swing.StopATRMultiple*trade.ATREntry

		// A swing low just under the entry marks structure worth
		// respecting; when it implies a tighter stop than the raw ATR
		// distance, take the tighter one.
		if len(signalBars) >= 10 {
			lows := make([]float64, len(signalBars))
			for i, b := range signalBars {
				lows[i] = b.Low
			}
			swingLow := indicator.WindowMin(lows, 10)
			if s := swingLow - r.cfg.Swing.SwingLowBuffer*trade.ATREntry; s > r.initialStop {
				r.initialStop = s
			}
		}
		r.risk = r.entry - r.initialStop
		r.target = r.entry + 3*r.risk
		r.window = forward

	case r.cfg.RequireConfirmationBar && strategy.RequiresConfirmation(trade.Strategy):
		if trade.StopLoss >= trade.Entry {
			return false
		}
		if len(signalBars) < 20 {
			return false
		}
		conf := forward[0]
		if !confirms(signalBars, conf, r.cfg) {
			return false
		}
		r.entry = conf.Open
		r.entryDate = conf.Date
		r.risk = trade.Entry - trade.StopLoss
		r.initialStop = r.entry - r.risk
		r.target = r.entry + r.cfg.RRRatio*r.risk
		r.window = forward[1:]

	default:
		if trade.StopLoss >= trade.Entry {
			return false
		}
		r.entry = trade.Entry
		r.entryDate = trade.AsOf
		r.initialStop = trade.StopLoss
		r.target = trade.Target
		r.risk = r.entry - r.initialStop
		r.window = forward
	}

	r.stop = r.initialStop
	r.highest = r.entry
	r.remaining = 1.0
	return true
}

// confirms gates the day after the signal: no big gap away from the
// signal close, price still above the signal-date EMA20, no bearish
// reversal bar, and volume above the 20-day average.
func confirms(signalBars []bar.Bar, conf bar.Bar, cfg config.SimConfig) bool {
	closes := bar.Closes(signalBars)
	signalClose := closes[len(closes)-1]
	ema20, err := indicator.EMA(closes, 20)
	if err != nil {
		return false
	}
	signalEMA20 := ema20[len(ema20)-1]
	avgVolume := indicator.WindowMean(bar.Volumes(signalBars), 20)

	gapPct := abs((conf.Open - signalClose) / signalClose * 100)

	gapOK := gapPct < cfg.ConfirmationMaxGapPct
	priceHolds := conf.Close > signalEMA20
	noReversal := conf.Close >= conf.Open*0.99
	volumeOK := conf.Volume > avgVolume*cfg.ConfirmationMinVolumeRatio

	return gapOK && priceHolds && noReversal && volumeOK
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// exitSignal is a triggered exit: the price it fills at, the result
// classification, and the reason recorded in the ledger.
type exitSignal struct {
	price  float64
	result Result
	reason string
}

// run replays the window bar by bar and returns the final (Full or
// Runner) outcome row. Any partial exit along the way is recorded on
// r.partial.
func (r *replay) run() Outcome {
	family := strategy.FamilyOf(r.trade.Strategy)
	skipMinHolding := family == strategy.FamilyMeanReversion ||
		family == strategy.FamilySwing ||
		r.trade.CrossoverType == scanner.CrossoverCascading

	var exit *exitSignal
	days := len(r.window)

	for i, b := range r.window {
		day := i + 1
		if b.High > r.highest {
			r.highest = b.High
		}

		// Anti-whipsaw: before the minimum holding period only a
		// catastrophic loss may take the trade out.
		if day < r.cfg.MinHoldingDays && !skipMinHolding {
			lossR := (r.entry - b.Close) / maxf(r.risk, riskEpsilon)
			if lossR > r.cfg.CatastrophicLossR && b.Low <= r.stop {
				exit = &exitSignal{price: r.stop, result: ResultLoss, reason: "CatastrophicLoss"}
				days = day
				break
			}
			continue
		}

		if r.cfg.PartialExitEnabled && !r.partialExited {
			r.evalPartial(i, day, b)
		}

		if e := r.evalRunner(i, day, b); e != nil {
			exit = e
			days = day
			break
		}

		// Universal fallback, stop before target, every bar.
		if b.Low <= r.stop {
			result, reason := ResultLoss, "StopLoss"
			if r.stop > r.entry {
				result, reason = ResultPartialWin, "TrailingStop"
			}
			exit = &exitSignal{price: r.stop, result: result, reason: reason}
			days = day
			break
		}
		if b.High >= r.target {
			exit = &exitSignal{price: r.target, result: ResultWin, reason: "Target"}
			days = day
			break
		}
	}

	if exit == nil {
		exit = &exitSignal{
			price:  r.window[len(r.window)-1].Close,
			result: ResultTimeExit,
			reason: "MaxDays",
		}
	}
	return r.outcome(exit, days)
}

func (r *replay) outcome(exit *exitSignal, days int) Outcome {
	size := 1.0
	positionType := PositionFull
	if r.partialExited {
		size = r.remaining
		positionType = PositionRunner
	}
	rMultiple := (exit.price - r.entry) / maxf(r.entry-r.initialStop, riskEpsilon)
	return Outcome{
		Ticker:          r.trade.Ticker,
		Strategy:        r.trade.Strategy,
		PositionType:    positionType,
		CrossoverType:   r.trade.CrossoverType,
		CrossoverBonus:  r.trade.CrossoverBonus,
		Score:           r.trade.FinalScore,
		EntryDate:       r.entryDate,
		EntryPrice:      r.entry,
		ExitPrice:       exit.price,
		Result:          exit.result,
		ExitReason:      exit.reason,
		RMultiple:       rMultiple,
		PnLDollars:      r.pnl(rMultiple, size),
		HoldingDays:     days,
		PositionSizePct: size * 100,
		InitialStop:     r.initialStop,
		Target:          r.target,
	}
}

// pnl converts an R-multiple into dollars for the given position
// fraction at the fixed per-trade capital allocation.
func (r *replay) pnl(rMultiple, fraction float64) float64 {
	shares := r.cfg.CapitalPerTrade / r.entry * fraction
	riskDollars := shares * abs(r.entry-r.initialStop)
	return rMultiple * riskDollars
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
