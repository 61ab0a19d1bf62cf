// Package prebuy turns raw scanner signals into admitted, sized,
// deduplicated trade candidates. It owns liquidity filtering, ATR-derived
// stops and targets, expectancy scoring, and trade-geometry validation.
package prebuy

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"github.com/cbeeswax/stock-alert/internal/bar"
	"github.com/cbeeswax/stock-alert/internal/config"
	"github.com/cbeeswax/stock-alert/internal/indicator"
	"github.com/cbeeswax/stock-alert/internal/marketdata"
	"github.com/cbeeswax/stock-alert/internal/regime"
	"github.com/cbeeswax/stock-alert/internal/scanner"
	"github.com/cbeeswax/stock-alert/internal/strategy"
)

// adxMin filters weak-trend EMA crossover entries.
const adxMin = 30

// liquidityWindow is the dollar-volume averaging window in bars.
const liquidityWindow = 20

// AdmittedTrade is a signal that survived every pre-trade filter, with
// validated geometry and a final composite score. Guaranteed unique per
// ticker per scan date, long side only, stop < entry < target.
type AdmittedTrade struct {
	Ticker         string
	Strategy       strategy.Name
	AsOf           time.Time
	Entry          float64
	StopLoss       float64
	Target         float64
	ATREntry       float64
	RawScore       float64
	FinalScore     float64
	Expectancy     float64
	CrossoverType  string
	CrossoverBonus float64
	MaxDays        int
}

// Filter applies the pre-trade pipeline to one scan date's signals.
type Filter struct {
	provider        marketdata.Provider
	minLiquidityUSD float64
	sim             config.SimConfig
}

func New(provider marketdata.Provider, minLiquidityUSD float64, sim config.SimConfig) *Filter {
	return &Filter{
		provider:        provider,
		minLiquidityUSD: minLiquidityUSD,
		sim:             sim,
	}
}

// Check deduplicates, filters, sizes, and scores the signals, returning
// trades sorted by descending FinalScore with strategy priority breaking
// ties. Everything that drops out is logged and skipped, never an error.
func (f *Filter) Check(ctx context.Context, signals []scanner.Signal, asOf time.Time) ([]AdmittedTrade, error) {
	deduped := dedupeByPriority(signals)

	var trades []AdmittedTrade
	for _, s := range deduped {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trade, reason := f.admit(ctx, s, asOf)
		if reason != "" {
			log.Printf("Check | %s [%s]: filtered, %s", s.Ticker, s.Strategy, reason)
			continue
		}
		trades = append(trades, trade)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].FinalScore != trades[j].FinalScore {
			return trades[i].FinalScore > trades[j].FinalScore
		}
		return strategy.Priority(trades[i].Strategy) > strategy.Priority(trades[j].Strategy)
	})
	return trades, nil
}

// admit runs one signal through the filter chain. A non-empty reason means
// the signal was dropped.
func (f *Filter) admit(ctx context.Context, s scanner.Signal, asOf time.Time) (AdmittedTrade, string) {
	if s.Regime == regime.Bear && strategy.Breakout(s.Strategy) {
		return AdmittedTrade{}, "bearish regime blocks breakout entries"
	}

	history, err := f.provider.History(ctx, s.Ticker)
	if err != nil || len(history) == 0 {
		return AdmittedTrade{}, "no historical data"
	}
	bars := bar.Through(history, asOf)
	if len(bars) < 60 {
		return AdmittedTrade{}, "insufficient history"
	}
	bars = bars[len(bars)-60:]
	closeLast := bars[len(bars)-1].Close

	if avg := avgDollarVolume(bars, liquidityWindow); avg < f.minLiquidityUSD {
		return AdmittedTrade{}, "low liquidity"
	}

	atr := indicator.LastATR(bars, 14)
	if atr == 0 {
		atr = closeLast * 0.02
	}

	entry := s.Price
	if entry <= 0 {
		entry = closeLast
	}
	stop := stopLoss(s.Strategy, entry, atr)
	target := targetPrice(s.Strategy, entry, stop)

	if s.Strategy == strategy.EMACrossover && s.ADX14 < adxMin {
		return AdmittedTrade{}, "ADX too low"
	}

	if math.IsNaN(stop) || math.IsNaN(target) || stop <= 0 || target <= 0 || entry <= 0 {
		return AdmittedTrade{}, "invalid stop/target"
	}
	if stop >= entry {
		return AdmittedTrade{}, "stop not below entry"
	}

	return AdmittedTrade{
		Ticker:         s.Ticker,
		Strategy:       s.Strategy,
		AsOf:           asOf,
		Entry:          entry,
		StopLoss:       stop,
		Target:         target,
		ATREntry:       atr,
		RawScore:       s.Score,
		FinalScore:     normalizeScore(s.Score, s.Strategy),
		Expectancy:     expectancy(s.Strategy),
		CrossoverType:  s.CrossoverType,
		CrossoverBonus: s.CrossoverBonus,
		MaxDays:        f.maxDays(s.Strategy),
	}, ""
}

// dedupeByPriority keeps one signal per ticker, the one from the highest
// priority strategy.
func dedupeByPriority(signals []scanner.Signal) []scanner.Signal {
	best := make(map[string]scanner.Signal)
	order := make([]string, 0, len(signals))
	for _, s := range signals {
		prev, ok := best[s.Ticker]
		if !ok {
			order = append(order, s.Ticker)
			best[s.Ticker] = s
			continue
		}
		if strategy.Priority(s.Strategy) > strategy.Priority(prev.Strategy) {
			best[s.Ticker] = s
		}
	}
	out := make([]scanner.Signal, 0, len(order))
	for _, t := range order {
		out = append(out, best[t])
	}
	return out
}

func avgDollarVolume(bars []bar.Bar, window int) float64 {
	dv := make([]float64, len(bars))
	for i, b := range bars {
		dv[i] = b.Close * b.Volume
	}
	return indicator.WindowMean(dv, window)
}

// stopLoss applies the strategy-specific ATR multiple. Trend strategies
// get the widest stop; mean reversion needs less room.
func stopLoss(n strategy.Name, entry, atr float64) float64 {
	mult := 2.0
	if n == strategy.EMACrossover || n == strategy.SwingMomentum {
		mult = 2.5
	}
	return entry - mult*atr
}

// targetPrice applies the strategy-specific reward multiple: quick-bounce
// mean reversion aims for 1.5R, momentum continuation for 2R.
func targetPrice(n strategy.Name, entry, stop float64) float64 {
	rr := 2.0
	if strategy.FamilyOf(n) == strategy.FamilyMeanReversion {
		rr = 1.5
	}
	return entry + rr*(entry-stop)
}

// Historical per-strategy performance used by the expectancy score:
// win rate, average win in R, average loss in R (negative). Updated from
// backtest results; the mean-reversion numbers hold up, momentum is the
// assumption set.
type strategyMetrics struct {
	winRate  float64
	avgWinR  float64
	avgLossR float64
}

func metricsFor(n strategy.Name) strategyMetrics {
	switch n {
	case strategy.BBRSICombo:
		return strategyMetrics{0.80, 1.50, -1.00}
	case strategy.MeanReversion:
		return strategyMetrics{0.78, 1.50, -1.00}
	case strategy.PercentBReversion:
		return strategyMetrics{0.78, 1.50, -1.00}
	case strategy.High52Week:
		return strategyMetrics{0.50, 2.00, -1.00}
	case strategy.EMACrossover, strategy.ConsolidationBreakout, strategy.BBSqueeze:
		return strategyMetrics{0.45, 2.00, -1.00}
	default:
		return strategyMetrics{0.30, 1.50, -1.00}
	}
}

// scoreRange is the raw-score span each strategy emits, used to normalize
// quality to [0, 1] before weighting by expectancy.
func scoreRange(n strategy.Name) (low, high float64) {
	switch n {
	case strategy.EMACrossover:
		return 50, 100
	case strategy.High52Week:
		return 6, 12
	case strategy.ConsolidationBreakout:
		return 4, 10
	case strategy.BBSqueeze:
		return 50, 100
	case strategy.MeanReversion, strategy.PercentBReversion:
		return 40, 100
	case strategy.BBRSICombo:
		return 50, 100
	default:
		return 0, 20
	}
}

// expectancy is Van Tharp's: winRate*avgWin − (1−winRate)*|avgLoss|, the
// average R to expect per trade of this strategy.
func expectancy(n strategy.Name) float64 {
	m := metricsFor(n)
	return m.winRate*m.avgWinR - (1-m.winRate)*math.Abs(m.avgLossR)
}

// normalizeScore maps a raw score to quality in [0, 1] within its
// strategy's range, then weights by the strategy's expectancy. The ×10
// keeps the result on a readable 0-13 scale.
func normalizeScore(score float64, n strategy.Name) float64 {
	low, high := scoreRange(n)
	quality := (score - low) / (high - low)
	quality = math.Max(0, math.Min(1, quality))
	return quality * expectancy(n) * 10
}

func (f *Filter) maxDays(n strategy.Name) int {
	switch strategy.FamilyOf(n) {
	case strategy.FamilyMeanReversion:
		return f.sim.MaxHoldingMeanReversion
	case strategy.FamilySwing:
		return f.sim.Swing.MaxHoldingDays
	default:
		return f.sim.MaxHoldingMomentum
	}
}
