package model

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DayName resolves a "2006-01-02" date to its lowercase weekday name,
// matching the keys of WeeklyHours
func DayName(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", err
	}
	return strings.ToLower(t.Weekday().String()), nil
}

// DatesBetween returns every date from start to end inclusive, in order
func DatesBetween(start, end string) ([]string, error) {
	startT, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, err
	}
	endT, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, err
	}

	var dates []string
	for d := startT; !d.After(endT); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}

// IsActive reports whether the hold still blocks availability at now.
// Released and converted holds never block; an expiry in the past releases
// the hold implicitly.
func (h Hold) IsActive(now time.Time) bool {
	if h.Released || h.Converted {
		return false
	}
	if h.ExpiresAt == "" {
		return true
	}
	expires, err := time.Parse(time.RFC3339, h.ExpiresAt)
	if err != nil {
		return false
	}
	return expires.After(now)
}
