package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-day layout used by providers and the CLI.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, plain dates and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// TruncateDay returns midnight UTC of t's calendar day.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextTradingDay returns the next weekday after d. Zero stays zero.
func NextTradingDay(d time.Time) time.Time {
	if d.IsZero() {
		return d
	}
	next := d.AddDate(0, 0, 1)
	switch next.Weekday() {
	case time.Saturday:
		next = next.AddDate(0, 0, 2)
	case time.Sunday:
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// TradingDays converts a horizon in years to simulated steps, at least one.
func TradingDays(years float64, perYear int) int {
	n := int(years*float64(perYear) + 0.5)
	if n < 1 {
		return 1
	}
	return n
}
