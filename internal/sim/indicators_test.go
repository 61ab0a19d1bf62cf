package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndicatorSet_WarmupGuards(t *testing.T) {
	window := flatBars(0, 25, 100, 1e6)
	window[3].Close = 104
	ind := newIndicatorSet(window)

	t.Run("ma5 shrinks to the available window", func(t *testing.T) {
		assert.InDelta(t, 100.0, ind.ma5(0), 1e-9)
		assert.InDelta(t, 101.0, ind.ma5(3), 1e-9, "mean of 100,100,100,104")
		assert.InDelta(t, 100.8, ind.ma5(7), 1e-9)
	})

	t.Run("short EMA reads fall back to the close before warmup", func(t *testing.T) {
		assert.Equal(t, 104.0, ind.ema10At(3))
		assert.NotEqual(t, ind.closes[9], ind.ema10[9])
		assert.Equal(t, ind.ema10[9], ind.ema10At(9))
	})

	t.Run("long SMA reads fall back to the close before warmup", func(t *testing.T) {
		assert.Equal(t, 104.0, ind.sma20At(3))
		assert.Equal(t, ind.sma20[19], ind.sma20At(19))
		assert.Equal(t, 100.0, ind.sma30At(24), "still inside SMA30 warmup")
	})

	t.Run("ATR proxies at two percent of the close before warmup", func(t *testing.T) {
		assert.InDelta(t, 2.08, ind.atrAt(3), 1e-9)
		assert.InDelta(t, 1.0, ind.atrAt(20), 0.5, "warmed ATR reflects the one-point daily range")
	})

	t.Run("oscillator warmups are NaN and never trigger", func(t *testing.T) {
		assert.True(t, math.IsNaN(ind.rsi14[5]))
		assert.True(t, math.IsNaN(ind.percentB[10]))
		assert.False(t, ind.rsi14[5] > 60)
	})
}
