package repository

import (
	"fmt"
	"time"
)

// Period is a provider look-back range such as "1mo" or "10y".
type Period string

const (
	Period5d  Period = "5d"
	Period1mo Period = "1mo"
	Period3mo Period = "3mo"
	Period6mo Period = "6mo"
	Period1y  Period = "1y"
	Period2y  Period = "2y"
	Period5y  Period = "5y"
	Period10y Period = "10y"
	PeriodMax Period = "max"
)

// IsValidPeriod returns true if p is a supported period.
func IsValidPeriod(p Period) bool {
	switch p {
	case Period5d, Period1mo, Period3mo, Period6mo, Period1y, Period2y, Period5y, Period10y, PeriodMax:
		return true
	default:
		return false
	}
}

// NormalizePeriod converts raw string to a valid period (or 1mo).
func NormalizePeriod(s string) Period {
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return Period1mo
}

// Range returns the [from, to] dates covered by p ending at now.
func (p Period) Range(now time.Time) (time.Time, time.Time, error) {
	to := now.UTC().Truncate(24 * time.Hour)
	switch p {
	case Period5d:
		return to.AddDate(0, 0, -5), to, nil
	case Period1mo:
		return to.AddDate(0, -1, 0), to, nil
	case Period3mo:
		return to.AddDate(0, -3, 0), to, nil
	case Period6mo:
		return to.AddDate(0, -6, 0), to, nil
	case Period1y:
		return to.AddDate(-1, 0, 0), to, nil
	case Period2y:
		return to.AddDate(-2, 0, 0), to, nil
	case Period5y:
		return to.AddDate(-5, 0, 0), to, nil
	case Period10y:
		return to.AddDate(-10, 0, 0), to, nil
	case PeriodMax:
		return time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), to, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unsupported period: %s", p)
	}
}
