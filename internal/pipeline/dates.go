// Package pipeline models the sales-flow timeline (product, phase, activity)
// and derives the forecast/actual/status figures rendered in its grids.
// Nothing here reads the wall clock: "today" is always passed in.
package pipeline

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// ParseDate reads DD/MM/YYYY or DD/MM/YY. Two-digit years mean 2000+YY.
// Out-of-range parts roll over the way time.Date normalises them.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	d, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	if y < 100 {
		y += 2000
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}

// FormatDate renders t as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// Midnight returns the calendar date of t as a UTC midnight, comparable with
// the values returned by ParseDate.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns ceil((end - start) / 1 day). ok is false when either
// date does not parse.
func DaysBetween(start, end string) (int, bool) {
	s, ok := ParseDate(start)
	if !ok {
		return 0, false
	}
	e, ok := ParseDate(end)
	if !ok {
		return 0, false
	}
	return daysBetween(s, e), true
}

// DaysFromToday is DaysBetween(start, today).
func DaysFromToday(start string, today time.Time) (int, bool) {
	s, ok := ParseDate(start)
	if !ok {
		return 0, false
	}
	return daysBetween(s, Midnight(today)), true
}

// DaysUntil is DaysBetween(today, future). Negative when already overdue.
func DaysUntil(future string, today time.Time) (int, bool) {
	f, ok := ParseDate(future)
	if !ok {
		return 0, false
	}
	return daysBetween(Midnight(today), f), true
}

func daysBetween(start, end time.Time) int {
	return int(math.Ceil(float64(end.Sub(start)) / float64(day)))
}
