package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbeeswax/stock-alert/internal/bar"
	"github.com/cbeeswax/stock-alert/internal/config"
	"github.com/cbeeswax/stock-alert/internal/prebuy"
	"github.com/cbeeswax/stock-alert/internal/scanner"
	"github.com/cbeeswax/stock-alert/internal/strategy"
)

var testBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testDay(i int) time.Time { return testBase.AddDate(0, 0, i) }

func mkBar(i int, open, high, low, close, volume float64) bar.Bar {
	return bar.Bar{
		Date:   testDay(i),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
		Ticker: "TEST",
	}
}

// flatBars produces n identical bars starting at day offset.
func flatBars(offset, n int, price, volume float64) []bar.Bar {
	out := make([]bar.Bar, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, mkBar(offset+i, price, price+0.5, price-0.5, price, volume))
	}
	return out
}

// testSimConfig keeps production numerics but disables entry confirmation
// and the minimum holding period so scenarios control their own timing.
func testSimConfig() config.SimConfig {
	cfg := config.DefaultSimConfig()
	cfg.RequireConfirmationBar = false
	cfg.MinHoldingDays = 0
	return cfg
}

func TestSimulate_NoForwardData(t *testing.T) {
	history := flatBars(0, 30, 100, 1e6)
	trade := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.High52Week,
		AsOf:     testDay(29),
		Entry:    100,
		StopLoss: 95,
		Target:   115,
		MaxDays:  30,
	}
	assert.Empty(t, Simulate(trade, history, testSimConfig()))
}

func TestSimulate_StopHitBeforeTarget(t *testing.T) {
	history := flatBars(0, 5, 100, 1e6)
	history = append(history,
		mkBar(5, 100, 101, 99, 100, 1e6),
		mkBar(6, 100, 102, 99, 101, 1e6),
		mkBar(7, 99, 100, 94, 96, 1e6),
	)
	trade := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.High52Week,
		AsOf:     testDay(4),
		Entry:    100,
		StopLoss: 95,
		Target:   115,
		MaxDays:  30,
	}

	outcomes := Simulate(trade, history, testSimConfig())
	require.Len(t, outcomes, 1)

	o := outcomes[0]
	assert.Equal(t, PositionFull, o.PositionType)
	assert.Equal(t, ResultLoss, o.Result)
	assert.Equal(t, "StopLoss", o.ExitReason)
	assert.Equal(t, 95.0, o.ExitPrice)
	assert.Equal(t, 3, o.HoldingDays)
	assert.InDelta(t, -1.0, o.RMultiple, 1e-9)
	assert.Equal(t, 100.0, o.PositionSizePct)
}

func TestSimulate_PartialThenRunner(t *testing.T) {
	history := flatBars(0, 5, 50.2, 1e6)
	history = append(history,
		mkBar(5, 50.2, 50.5, 49.6, 50.2, 1e6),
		mkBar(6, 50.1, 50.3, 49.3, 49.8, 1e6),
		mkBar(7, 49.7, 49.9, 48.8, 49.4, 1e6),
		mkBar(8, 49.3, 49.5, 48.6, 49.0, 1e6),
		mkBar(9, 50.8, 52.5, 50.6, 52.4, 1e6), // partial trigger: exactly 1.2R
		mkBar(10, 51.0, 51.2, 50.0, 50.1, 1e6),
	)
	trade := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.MeanReversion,
		AsOf:     testDay(4),
		Entry:    50,
		StopLoss: 48,
		Target:   53,
		MaxDays:  10,
	}

	outcomes := Simulate(trade, history, testSimConfig())
	require.Len(t, outcomes, 2)

	partial, runner := outcomes[0], outcomes[1]

	assert.Equal(t, PositionPartial, partial.PositionType)
	assert.Equal(t, "1.2R_Profit", partial.PartialTrigger)
	assert.Equal(t, 52.4, partial.ExitPrice)
	assert.InDelta(t, 1.2, partial.RMultiple, 1e-9)
	assert.Equal(t, 40.0, partial.PositionSizePct)
	assert.Equal(t, 5, partial.HoldingDays)
	assert.InDelta(t, 57.6, partial.PnLDollars, 1e-6)

	assert.Equal(t, PositionRunner, runner.PositionType)
	assert.Equal(t, ResultWin, runner.Result)
	assert.Equal(t, "Runner_EMA_Break", runner.ExitReason)
	assert.Equal(t, 50.1, runner.ExitPrice)
	assert.Equal(t, 60.0, runner.PositionSizePct)
	assert.Equal(t, 6, runner.HoldingDays)
	assert.InDelta(t, 0.05, runner.RMultiple, 1e-9)
	assert.InDelta(t, 3.6, runner.PnLDollars, 1e-6)

	// Disjoint fractions of one logical trade.
	assert.InDelta(t, 100.0, partial.PositionSizePct+runner.PositionSizePct, 1e-9)
}

func TestSimulate_ConfirmationRejectedOnGap(t *testing.T) {
	history := flatBars(0, 25, 100, 1e6)
	history = append(history, mkBar(25, 105, 106, 104, 105, 2e6))

	cfg := testSimConfig()
	cfg.RequireConfirmationBar = true

	trade := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.High52Week,
		AsOf:     testDay(24),
		Entry:    100,
		StopLoss: 95,
		Target:   110,
		MaxDays:  30,
	}
	assert.Empty(t, Simulate(trade, history, cfg), "a 5 percent gap against a 3 percent cap must reject the trade")
}

func TestSimulate_ConfirmationRejectsInvertedStop(t *testing.T) {
	history := flatBars(0, 25, 100, 1e6)
	history = append(history, mkBar(25, 100.5, 101.2, 100.2, 101, 1.2e6))

	cfg := testSimConfig()
	cfg.RequireConfirmationBar = true

	trade := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.High52Week,
		AsOf:     testDay(24),
		Entry:    100,
		StopLoss: 100.5,
		Target:   110,
		MaxDays:  30,
	}
	assert.Empty(t, Simulate(trade, history, cfg), "a stop at or above entry must reject the trade")
}

func TestSimulate_ConfirmationRecomputesEntryAroundSameRisk(t *testing.T) {
	history := flatBars(0, 25, 100, 1e6)
	history = append(history,
		mkBar(25, 100.5, 101.2, 100.2, 101, 1.2e6), // confirmation bar
		mkBar(26, 101, 111, 100.8, 110, 1.2e6),
	)

	cfg := testSimConfig()
	cfg.RequireConfirmationBar = true

	trade := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.High52Week,
		AsOf:     testDay(24),
		Entry:    100,
		StopLoss: 95,
		Target:   110,
		MaxDays:  30,
	}

	outcomes := Simulate(trade, history, cfg)
	require.Len(t, outcomes, 1)

	o := outcomes[0]
	assert.Equal(t, 100.5, o.EntryPrice, "entry is the confirmation bar's open")
	assert.Equal(t, testDay(25), o.EntryDate)
	assert.Equal(t, 95.5, o.InitialStop, "original 5-point risk is preserved")
	assert.Equal(t, ResultWin, o.Result)
	assert.Equal(t, "Target", o.ExitReason)
	assert.Equal(t, 110.5, o.ExitPrice)
	assert.Equal(t, 1, o.HoldingDays)
}

func TestSimulate_MinHoldingSuppressesPrematureStop(t *testing.T) {
	history := flatBars(0, 5, 100, 1e6)
	history = append(history,
		mkBar(5, 100, 101, 98, 99, 1e6),
		mkBar(6, 99, 99.5, 94.9, 96, 1e6), // stop touched at only 0.8R down
		mkBar(7, 96, 99, 95.5, 98, 1e6),
		mkBar(8, 98, 100, 97, 99, 1e6),
		mkBar(9, 99, 101, 98, 100, 1e6),
		mkBar(10, 100, 102, 99, 101, 1e6),
	)

	cfg := testSimConfig()
	cfg.MinHoldingDays = 5
	cfg.CatastrophicLossR = 1.5

	trade := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.High52Week,
		AsOf:     testDay(4),
		Entry:    100,
		StopLoss: 95,
		Target:   115,
		MaxDays:  30,
	}

	outcomes := Simulate(trade, history, cfg)
	require.Len(t, outcomes, 1)

	o := outcomes[0]
	assert.Equal(t, ResultTimeExit, o.Result)
	assert.Equal(t, 6, o.HoldingDays, "the day-2 stop touch must not exit under the holding guard")
	assert.Equal(t, 101.0, o.ExitPrice)
}

func TestSimulate_CatastrophicLossOverridesHoldingGuard(t *testing.T) {
	history := flatBars(0, 5, 100, 1e6)
	history = append(history,
		mkBar(5, 100, 101, 98, 99, 1e6),
		mkBar(6, 95, 96, 90, 91, 1e6), // 1.8R down with the stop breached
	)

	cfg := testSimConfig()
	cfg.MinHoldingDays = 5
	cfg.CatastrophicLossR = 1.5

	trade := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.High52Week,
		AsOf:     testDay(4),
		Entry:    100,
		StopLoss: 95,
		Target:   115,
		MaxDays:  30,
	}

	outcomes := Simulate(trade, history, cfg)
	require.Len(t, outcomes, 1)

	o := outcomes[0]
	assert.Equal(t, ResultLoss, o.Result)
	assert.Equal(t, "CatastrophicLoss", o.ExitReason)
	assert.Equal(t, 95.0, o.ExitPrice)
	assert.Equal(t, 2, o.HoldingDays)
}

func TestSimulate_EMACrossoverBreakdown(t *testing.T) {
	forward := []bar.Bar{
		mkBar(5, 100, 101, 99, 100, 1e6),
		mkBar(6, 99, 99.5, 97.5, 98, 1e6),
	}

	base := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.EMACrossover,
		AsOf:     testDay(4),
		Entry:    100,
		StopLoss: 95,
		Target:   115,
		MaxDays:  30,
	}

	t.Run("standard crossover exits on EMA20 breakdown", func(t *testing.T) {
		history := append(flatBars(0, 5, 100, 1e6), forward...)
		trade := base
		trade.CrossoverType = scanner.CrossoverStandard

		outcomes := Simulate(trade, history, testSimConfig())
		require.Len(t, outcomes, 1)
		assert.Equal(t, ResultEMABreakdown, outcomes[0].Result)
		assert.Equal(t, "EMA20Breakdown", outcomes[0].ExitReason)
		assert.Equal(t, 98.0, outcomes[0].ExitPrice)
	})

	t.Run("cascading crossover rides through the breakdown", func(t *testing.T) {
		history := append(flatBars(0, 5, 100, 1e6), forward...)
		trade := base
		trade.CrossoverType = scanner.CrossoverCascading

		outcomes := Simulate(trade, history, testSimConfig())
		require.Len(t, outcomes, 1)
		assert.Equal(t, ResultTimeExit, outcomes[0].Result)
	})
}

func TestSimulate_SwingStopPartialAndTrail(t *testing.T) {
	history := flatBars(0, 12, 100, 1e6) // lows at 99.5 set the swing low
	history = append(history,
		mkBar(12, 100, 102.5, 100.2, 102, 1e6),
		mkBar(13, 102.5, 104.2, 102, 103.5, 1e6), // 2R partial, stop locks to entry+1R
		mkBar(14, 102, 102, 101, 101.8, 1e6),     // runner stopped at the lock
	)

	trade := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.SwingMomentum,
		AsOf:     testDay(11),
		Entry:    100,
		ATREntry: 2,
		MaxDays:  60,
	}

	outcomes := Simulate(trade, history, testSimConfig())
	require.Len(t, outcomes, 2)

	partial, runner := outcomes[0], outcomes[1]

	// ATR stop is 95, but the 10-bar swing low (99.5) minus half an ATR
	// implies 98.5, the more conservative stop.
	assert.InDelta(t, 98.5, partial.InitialStop, 1e-9)
	assert.Equal(t, testDay(11), partial.EntryDate, "swing entries take the signal date")
	assert.Equal(t, PositionPartial, partial.PositionType)
	assert.Equal(t, "2R_Profit", partial.PartialTrigger)
	assert.Equal(t, 103.5, partial.ExitPrice)
	assert.Equal(t, 40.0, partial.PositionSizePct)
	assert.Equal(t, 2, partial.HoldingDays)

	assert.Equal(t, PositionRunner, runner.PositionType)
	assert.Equal(t, ResultPartialWin, runner.Result)
	assert.Equal(t, "TrailingStop", runner.ExitReason)
	assert.InDelta(t, 101.5, runner.ExitPrice, 1e-9, "stop sits at entry plus one R after the partial")
	assert.Equal(t, 3, runner.HoldingDays)
}

func TestSimulate_AppendedFutureBarsChangeNothing(t *testing.T) {
	history := flatBars(0, 5, 100, 1e6)
	history = append(history,
		mkBar(5, 100, 101, 99, 100, 1e6),
		mkBar(6, 100, 102, 99, 101, 1e6),
		mkBar(7, 99, 100, 94, 96, 1e6),
	)
	trade := prebuy.AdmittedTrade{
		Ticker:   "TEST",
		Strategy: strategy.High52Week,
		AsOf:     testDay(4),
		Entry:    100,
		StopLoss: 95,
		Target:   115,
		MaxDays:  3,
	}
	cfg := testSimConfig()

	baseline := Simulate(trade, history, cfg)
	extended := Simulate(trade, append(history, flatBars(8, 30, 150, 1e6)...), cfg)
	assert.Equal(t, baseline, extended)
}
