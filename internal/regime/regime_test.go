package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cbeeswax/stock-alert/internal/bar"
)

func trend(n int, start, growth float64) []bar.Bar {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]bar.Bar, 0, n)
	close := start
	for i := 0; i < n; i++ {
		if i > 0 {
			close *= growth
		}
		out = append(out, bar.Bar{
			Date:   base.AddDate(0, 0, i),
			Open:   close,
			High:   close * 1.002,
			Low:    close * 0.998,
			Close:  close,
			Volume: 1e6,
			Ticker: "SPY",
		})
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		bars []bar.Bar
		want Label
	}{
		{"steady uptrend above a rising MA", trend(260, 400, 1.002), Bull},
		{"steady downtrend with a strong trend reading", trend(260, 400, 0.998), Bear},
		{"flat tape is sideways", trend(260, 400, 1.0), Sideways},
		{"too little history is sideways", trend(150, 400, 1.002), Sideways},
		{"no bars at all", nil, Sideways},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.bars, DefaultParams()))
		})
	}
}
