// Package dates generates the business-day scan calendar for the
// walk-forward loop.
package dates

import (
	"fmt"
	"time"
)

// IsBusinessDay reports whether d falls Monday through Friday. Exchange
// holidays are not modeled; a scan on a holiday simply finds no new bars.
func IsBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextBusinessDay returns the first business day strictly after d.
func NextBusinessDay(d time.Time) time.Time {
	for {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d) {
			return d
		}
	}
}

// weekdayOf maps the weekly frequency suffix to a weekday.
func weekdayOf(freq string) (time.Weekday, error) {
	switch freq {
	case "W-MON":
		return time.Monday, nil
	case "W-TUE":
		return time.Tuesday, nil
	case "W-WED":
		return time.Wednesday, nil
	case "W-THU":
		return time.Thursday, nil
	case "W-FRI":
		return time.Friday, nil
	default:
		return 0, fmt.Errorf("unsupported scan frequency: %s", freq)
	}
}

// ScanDates generates the ordered scan-date sequence from start through end
// (inclusive) at the given cadence: "B" for every business day, or
// "W-MON".."W-FRI" for weekly scans on that weekday.
func ScanDates(start, end time.Time, freq string) ([]time.Time, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s precedes start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	start = start.Truncate(24 * time.Hour)
	end = end.Truncate(24 * time.Hour)

	var out []time.Time
	switch freq {
	case "B":
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if IsBusinessDay(d) {
				out = append(out, d)
			}
		}
	default:
		wd, err := weekdayOf(freq)
		if err != nil {
			return nil, err
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if d.Weekday() == wd {
				out = append(out, d)
			}
		}
	}
	return out, nil
}
