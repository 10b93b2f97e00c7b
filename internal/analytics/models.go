package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CallsSummary is the overview aggregate across every agent a user owns.
type CallsSummary struct {
	TotalCalls             int `json:"total_calls"`
	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}

// DailyCount is one chart point. Date is a UTC calendar date (YYYY-MM-DD).
type DailyCount struct {
	Date  string `json:"date"`
	Calls int    `json:"calls"`
}

type CallsByDate struct {
	Range Range        `json:"range"`
	Total int          `json:"total"`
	Days  []DailyCount `json:"days"`
}

// Range is a chart window.
type Range string

const (
	Range7d  Range = "7d"
	Range30d Range = "30d"
	Range90d Range = "90d"

	DefaultRange = Range30d
)

var ErrInvalidRange = errors.New("analytics: invalid range")

// ParseRange accepts 7d, 30d or 90d. Empty input selects DefaultRange.
func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return DefaultRange, nil
	case Range7d, Range30d, Range90d:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
}

func (r Range) Days() int {
	switch r {
	case Range7d:
		return 7
	case Range90d:
		return 90
	default:
		return 30
	}
}

// Since returns the first calendar day (UTC midnight) inside the window.
func (r Range) Since(now time.Time) time.Time {
	y, m, d := now.UTC().AddDate(0, 0, -r.Days()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
