package bar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func valid(i int) Bar {
	return Bar{Date: day(i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1e6, Ticker: "TEST"}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Bar)
		wantErr bool
	}{
		{"valid bar", func(b *Bar) {}, false},
		{"zero date", func(b *Bar) { b.Date = time.Time{} }, true},
		{"non-positive price", func(b *Bar) { b.Close = 0 }, true},
		{"high below low", func(b *Bar) { b.High = 98 }, true},
		{"open outside range", func(b *Bar) { b.Open = 102 }, true},
		{"close outside range", func(b *Bar) { b.Close = 98 }, true},
		{"negative volume", func(b *Bar) { b.Volume = -1 }, true},
		{"missing ticker", func(b *Bar) { b.Ticker = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid(0)
			tt.mutate(&b)
			err := b.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSort(t *testing.T) {
	bars := []Bar{valid(2), valid(0), valid(1)}
	Sort(bars)
	assert.Equal(t, day(0), bars[0].Date)
	assert.Equal(t, day(1), bars[1].Date)
	assert.Equal(t, day(2), bars[2].Date)
}

func TestThroughAndAfter(t *testing.T) {
	bars := []Bar{valid(0), valid(1), valid(2), valid(3), valid(4)}

	through := Through(bars, day(2))
	require.Len(t, through, 3)
	assert.Equal(t, day(2), through[2].Date, "as-of date itself is included")

	after := After(bars, day(2))
	require.Len(t, after, 2)
	assert.Equal(t, day(3), after[0].Date)

	assert.Empty(t, Through(bars, day(-1)))
	assert.Empty(t, After(bars, day(10)))
	assert.Len(t, Through(bars, day(10)), 5)
}

func TestClosesAndVolumes(t *testing.T) {
	bars := []Bar{valid(0), valid(1)}
	bars[1].Close = 105
	bars[1].Volume = 2e6

	assert.Equal(t, []float64{100, 105}, Closes(bars))
	assert.Equal(t, []float64{1e6, 2e6}, Volumes(bars))
}
