// Package scanner generates raw strategy signals for a ticker universe,
// using only bars dated at or before the scan date.
package scanner

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/cbeeswax/stock-alert/internal/bar"
	"github.com/cbeeswax/stock-alert/internal/indicator"
	"github.com/cbeeswax/stock-alert/internal/marketdata"
	"github.com/cbeeswax/stock-alert/internal/regime"
	"github.com/cbeeswax/stock-alert/internal/strategy"
)

// minHistoryBars is enough for EMA200 plus indicator warmup.
const minHistoryBars = 220

// Crossover types for the EMA alignment strategy. Cascading means the
// 20/50 cross happened shortly after a 50/200 cross, the strongest setup.
const (
	CrossoverCascading = "Cascading"
	CrossoverStandard  = "Standard"
	CrossoverAligned   = "Aligned"
)

// Signal is one raw strategy hit for one ticker on one scan date.
// Stop and target are left zero here; the pre-trade filter derives them
// from ATR when the strategy does not propose its own.
type Signal struct {
	Ticker         string
	Strategy       strategy.Name
	Price          float64
	AsOf           time.Time
	Score          float64
	Regime         regime.Label
	RSI14          float64
	ADX14          float64
	CrossoverType  string
	CrossoverBonus float64
}

// Scanner runs the strategy checks over a universe at a point in time.
type Scanner struct {
	provider     marketdata.Provider
	regimeIndex  string
	regimeParams regime.Params
}

func New(provider marketdata.Provider, regimeIndex string) *Scanner {
	return &Scanner{
		provider:     provider,
		regimeIndex:  regimeIndex,
		regimeParams: regime.DefaultParams(),
	}
}

// Scan evaluates every ticker against every strategy as of asOf. Tickers
// with missing or short history are skipped, not errors.
func (s *Scanner) Scan(ctx context.Context, asOf time.Time, tickers []string) ([]Signal, error) {
	label, err := s.classifyRegime(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("Scan | classify regime: %w", err)
	}

	var signals []Signal
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		history, err := s.provider.History(ctx, ticker)
		if err != nil {
			log.Printf("Scan | %s: history fetch failed, skipping: %v", ticker, err)
			continue
		}
		bars := bar.Through(history, asOf)
		if len(bars) < minHistoryBars {
			continue
		}
		signals = append(signals, scanTicker(ticker, bars, asOf, label)...)
	}
	return signals, nil
}

func (s *Scanner) classifyRegime(ctx context.Context, asOf time.Time) (regime.Label, error) {
	history, err := s.provider.History(ctx, s.regimeIndex)
	if err != nil {
		return regime.Sideways, err
	}
	return regime.Classify(bar.Through(history, asOf), s.regimeParams), nil
}

func scanTicker(ticker string, bars []bar.Bar, asOf time.Time, label regime.Label) []Signal {
	closes := bar.Closes(bars)
	volumes := bar.Volumes(bars)
	last := len(bars) - 1
	lastClose := closes[last]

	ema20, err := indicator.EMA(closes, 20)
	if err != nil {
		return nil
	}
	ema50, err := indicator.EMA(closes, 50)
	if err != nil {
		return nil
	}
	ema200, err := indicator.EMA(closes, 200)
	if err != nil {
		return nil
	}
	rsi14Series, err := indicator.RSI(closes, 14)
	if err != nil {
		return nil
	}
	rsi14 := rsi14Series[last]
	adx14 := indicator.LastADX(bars, 14, 14)

	var signals []Signal

	// EMA Crossover: full bullish alignment of 20 over 50 over 200.
	if ema20[last] > ema50[last] && ema50[last] > ema200[last] {
		crossType, bonus := classifyCrossover(ema20, ema50, ema200)
		signals = append(signals, Signal{
			Ticker:         ticker,
			Strategy:       strategy.EMACrossover,
			Price:          lastClose,
			AsOf:           asOf,
			Score:          75 + bonus,
			Regime:         label,
			RSI14:          rsi14,
			ADX14:          adx14,
			CrossoverType:  crossType,
			CrossoverBonus: bonus,
		})
	}

	// 52-Week High: within 5% of the yearly high with momentum behind it.
	high52 := indicator.WindowMax(closes, 252)
	if high52 > 0 {
		pctFromHigh := (lastClose - high52) / high52 * 100
		if pctFromHigh > -5 && rsi14 > 50 {
			signals = append(signals, Signal{
				Ticker:   ticker,
				Strategy: strategy.High52Week,
				Price:    lastClose,
				AsOf:     asOf,
				Score:    100 + pctFromHigh,
				Regime:   label,
				RSI14:    rsi14,
				ADX14:    adx14,
			})
		}
	}

	// Consolidation Breakout: tight 20-day range broken on heavy volume.
	if rangePct, volRatio, ok := consolidation(bars, volumes, lastClose); ok {
		signals = append(signals, Signal{
			Ticker:   ticker,
			Strategy: strategy.ConsolidationBreakout,
			Price:    lastClose,
			AsOf:     asOf,
			Score:    (1 - rangePct) * volRatio,
			Regime:   label,
			RSI14:    rsi14,
			ADX14:    adx14,
		})
	}

	return signals
}

// classifyCrossover inspects the recent EMA history. A 20/50 cross inside
// the last 10 bars is Standard; if the 50/200 cross also happened inside
// the last 30 bars the two crossovers cascaded and the setup scores higher.
// Alignment with no recent cross earns no bonus.
func classifyCrossover(ema20, ema50, ema200 []float64) (string, float64) {
	n := len(ema20)
	fastCross := crossedWithin(ema20, ema50, n, 10)
	slowCross := crossedWithin(ema50, ema200, n, 30)

	switch {
	case fastCross && slowCross:
		return CrossoverCascading, 25
	case fastCross:
		return CrossoverStandard, 15
	default:
		return CrossoverAligned, 0
	}
}

func crossedWithin(fast, slow []float64, n, lookback int) bool {
	start := n - lookback
	if start < 1 {
		start = 1
	}
	for i := start; i < n; i++ {
		if fast[i-1] <= slow[i-1] && fast[i] > slow[i] {
			return true
		}
	}
	return false
}

func consolidation(bars []bar.Bar, volumes []float64, lastClose float64) (rangePct, volRatio float64, ok bool) {
	const window = 20
	n := len(bars)
	if n < window || lastClose <= 0 {
		return 0, 0, false
	}
	hi := math.Inf(-1)
	lo := math.Inf(1)
	for _, b := range bars[n-window:] {
		hi = math.Max(hi, b.High)
		lo = math.Min(lo, b.Low)
	}
	rangePct = (hi - lo) / lastClose
	avgVol := indicator.WindowMean(volumes, window)
	volRatio = volumes[n-1] / math.Max(avgVol, 1)
	return rangePct, volRatio, rangePct < 0.08 && volRatio > 1.5
}
