// Package bar
package bar

import (
	"errors"
	"sort"
	"time"
)

// Bar is a single daily OHLCV bar for one ticker. Immutable once observed.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Ticker string    `json:"ticker"`
}

// Validate checks if a bar has valid data
func (b *Bar) Validate() error {
	if b.Date.IsZero() {
		return errors.New("bar date is zero")
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return errors.New("bar prices must be positive")
	}
	if b.High < b.Low {
		return errors.New("bar high cannot be less than low")
	}
	if b.Open < b.Low || b.Open > b.High {
		return errors.New("bar open price must be between high and low")
	}
	if b.Close < b.Low || b.Close > b.High {
		return errors.New("bar close price must be between high and low")
	}
	if b.Volume < 0 {
		return errors.New("bar volume cannot be negative")
	}
	if b.Ticker == "" {
		return errors.New("bar ticker cannot be empty")
	}
	return nil
}

// Sort orders bars ascending by date in place.
func Sort(bars []Bar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}

// Through returns the prefix of bars dated on or before asOf.
// Bars must already be sorted ascending by date.
func Through(bars []Bar, asOf time.Time) []Bar {
	n := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(asOf)
	})
	return bars[:n]
}

// After returns the suffix of bars dated strictly after asOf.
// Bars must already be sorted ascending by date.
func After(bars []Bar, asOf time.Time) []Bar {
	n := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(asOf)
	})
	return bars[n:]
}

// Closes extracts the close column.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts the volume column.
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
