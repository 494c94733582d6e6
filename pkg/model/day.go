package model

import (
	"fmt"
	"time"
)

const DayLayout = "2006-01-02"

// DayOf returns the calendar day containing t, as observed in loc, encoded as
// UTC midnight. Every slot date is stored in this form.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay accepts either a bare YYYY-MM-DD date or an RFC3339 timestamp.
// Timestamps are mapped to their calendar day in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DayOf(t, loc), nil
}

// DayRange returns the half-open interval [day, nextDay) covering a stored day.
func DayRange(day time.Time) (time.Time, time.Time) {
	start := DayOf(day, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
