package sim

import (
	"github.com/cbeeswax/stock-alert/internal/bar"
	"github.com/cbeeswax/stock-alert/internal/scanner"
	"github.com/cbeeswax/stock-alert/internal/strategy"
)

// evalPartial checks the strategy's partial-exit trigger and, the first
// time it fires, books the Partial outcome row at the bar's close, shrinks
// the position to the runner fraction, and lifts the stop to protect the
// remainder. Runs at most once per trade.
func (r *replay) evalPartial(i, day int, b bar.Bar) {
	currentR := (b.Close - r.entry) / maxf(r.risk, riskEpsilon)

	var (
		triggered bool
		trigger   string
		size      float64
		stopLock  float64
	)

	switch r.trade.Strategy {
	case strategy.MeanReversion:
		size, stopLock = r.cfg.PartialExitSize, 0.25
		if currentR >= 1.2 {
			triggered, trigger = true, "1.2R_Profit"
		} else if r.ind.rsi2[i] > 70 {
			triggered, trigger = true, "RSI2_Above70"
		}

	case strategy.PercentBReversion:
		size, stopLock = r.cfg.PartialExitSize, 0.25
		if r.ind.percentB[i] >= 0.5 {
			triggered, trigger = true, "PercentB_0.5"
		} else if currentR >= 1.2 {
			triggered, trigger = true, "1.2R_Profit"
		}

	case strategy.BBRSICombo:
		size, stopLock = r.cfg.PartialExitSize, 0.25
		if r.ind.percentB[i] >= 0.65 {
			triggered, trigger = true, "PercentB_0.65"
		} else if r.ind.rsi14[i] > 60 {
			triggered, trigger = true, "RSI14_Above60"
		}

	case strategy.High52Week, strategy.EMACrossover, strategy.ConsolidationBreakout, strategy.BBSqueeze:
		size, stopLock = r.cfg.MomentumPartialSize, 0.25
		if currentR >= 2.0 {
			triggered, trigger = true, "2R_Profit"
		}

	case strategy.SwingMomentum:
		size, stopLock = r.cfg.Swing.PartialSize, r.cfg.Swing.BreakevenLock
		if currentR >= r.cfg.Swing.PartialRTrigger {
			triggered, trigger = true, "2R_Profit"
		}
	}

	if !triggered {
		return
	}

	r.partialExited = true
	r.remaining = 1.0 - size
	r.stop = r.entry + stopLock*r.risk

	result := ResultWin
	if b.Close <= r.entry {
		result = ResultLoss
	}
	partialR := (b.Close - r.entry) / maxf(r.risk, riskEpsilon)
	r.partial = &Outcome{
		Ticker:          r.trade.Ticker,
		Strategy:        r.trade.Strategy,
		PositionType:    PositionPartial,
		PartialTrigger:  trigger,
		CrossoverType:   r.trade.CrossoverType,
		CrossoverBonus:  r.trade.CrossoverBonus,
		Score:           r.trade.FinalScore,
		EntryDate:       r.entryDate,
		EntryPrice:      r.entry,
		ExitPrice:       b.Close,
		Result:          result,
		ExitReason:      "Partial_" + trigger,
		RMultiple:       partialR,
		PnLDollars:      r.pnl(partialR, size),
		HoldingDays:     day,
		PositionSizePct: size * 100,
		InitialStop:     r.initialStop,
		Target:          r.target,
	}
}

// evalRunner dispatches to the family exit rule. Mean-reversion variants
// close at the bar's close on oscillator and moving-average conditions;
// momentum runners ratchet an ATR trail and watch for MA breaks; the
// swing family trails off the peak under a hard time stop.
func (r *replay) evalRunner(i, day int, b bar.Bar) *exitSignal {
	switch r.trade.Strategy {
	case strategy.MeanReversion:
		return r.exitMeanReversion(i, day, b)
	case strategy.PercentBReversion:
		return r.exitPercentB(i, day, b)
	case strategy.BBRSICombo:
		return r.exitBBRSI(i, day, b)
	case strategy.High52Week, strategy.EMACrossover, strategy.ConsolidationBreakout, strategy.BBSqueeze:
		return r.exitMomentum(i, day, b)
	case strategy.SwingMomentum:
		return r.exitSwing(i, day, b)
	default:
		return nil
	}
}

func (r *replay) winLoss(price float64) Result {
	if price > r.entry {
		return ResultWin
	}
	return ResultLoss
}

func (r *replay) exitMeanReversion(i, day int, b bar.Bar) *exitSignal {
	ma5 := r.ind.ma5(i)

	if !r.partialExited {
		rsiOverbought := r.ind.rsi2[i] > 65
		aboveMA5 := b.Close > ma5
		if rsiOverbought || aboveMA5 {
			reason := "Above_MA5"
			if rsiOverbought {
				reason = "RSI2_Overbought"
			}
			return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: reason}
		}
		return nil
	}

	// Runner: the bounce is done once the oscillator normalizes while
	// price loses its short EMAs, or momentum rolls over against MA5.
	rsiNormalized := r.ind.rsi2[i] > 50
	belowEMA := b.Close < r.ind.ema10At(i) || b.Close < r.ind.ema20[i]
	twoBelowMA5 := i > 0 && b.Close < ma5 && r.ind.closes[i-1] < ma5
	maxDays := day >= r.maxHolding

	switch {
	case maxDays:
		return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "Runner_MaxDays"}
	case twoBelowMA5:
		return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "Runner_2xBelowMA5"}
	case rsiNormalized && belowEMA:
		return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "Runner_EMA_Break"}
	}
	return nil
}

func (r *replay) exitPercentB(i, day int, b bar.Bar) *exitSignal {
	if !r.partialExited {
		if r.ind.percentB[i] > 0.4 {
			return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "PercentB_Middle"}
		}
		return nil
	}

	extremeOverbought := r.ind.percentB[i] > 0.8
	belowEMA := b.Close < r.ind.ema10At(i) || b.Close < r.ind.ema20[i]
	maxDays := day >= r.maxHolding

	switch {
	case maxDays:
		return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "Runner_MaxDays"}
	case extremeOverbought:
		return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "Runner_PercentB_0.8"}
	case belowEMA:
		return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "Runner_EMA_Break"}
	}
	return nil
}

func (r *replay) exitBBRSI(i, day int, b bar.Bar) *exitSignal {
	if !r.partialExited {
		bbOverbought := r.ind.percentB[i] > 0.6
		rsiOverbought := r.ind.rsi14[i] > 60
		if bbOverbought || rsiOverbought {
			reason := "RSI14_Overbought"
			if bbOverbought {
				reason = "BB_Overbought"
			}
			return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: reason}
		}
		return nil
	}

	extremeBB := r.ind.percentB[i] > 0.9
	extremeRSIWithBreak := r.ind.rsi14[i] > 70 &&
		(b.Close < r.ind.ma5(i) || b.Close < r.ind.ema10At(i))
	maxDays := day >= r.maxHolding

	switch {
	case maxDays:
		return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "Runner_MaxDays"}
	case extremeBB:
		return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "Runner_PercentB_0.9"}
	case extremeRSIWithBreak:
		return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "Runner_RSI70_MA_Break"}
	}
	return nil
}

func (r *replay) exitMomentum(i, day int, b bar.Bar) *exitSignal {
	if r.partialExited {
		// Ratchet the trail; the stop itself fills via the universal
		// stop-touch check.
		if trail := r.highest - r.cfg.TrailATRMultiple*r.ind.atrAt(i); trail > r.stop {
			r.stop = trail
		}
		maBreak := b.Close < r.ind.sma20At(i) || b.Close < r.ind.sma30At(i)
		maxDays := day >= r.maxHolding

		if maBreak || maxDays {
			reason := "Runner_MA_Trail"
			if maxDays {
				reason = "Runner_MaxDays"
			}
			return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: reason}
		}
		return nil
	}

	// Cascading crossovers ride the trend; only the standard crossover
	// bails on an EMA20 breakdown before the partial.
	if r.trade.Strategy == strategy.EMACrossover &&
		r.trade.CrossoverType != scanner.CrossoverCascading &&
		b.Close < r.ind.ema20[i] {
		return &exitSignal{price: b.Close, result: ResultEMABreakdown, reason: "EMA20Breakdown"}
	}
	return nil
}

func (r *replay) exitSwing(i, day int, b bar.Bar) *exitSignal {
	if r.partialExited {
		if trail := r.highest - r.cfg.Swing.TrailATRMultiple*r.ind.atrAt(i); trail > r.stop {
			r.stop = trail
		}
	}
	if day >= r.maxHolding {
		return &exitSignal{price: b.Close, result: r.winLoss(b.Close), reason: "TimeStop"}
	}
	return nil
}
