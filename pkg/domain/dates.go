package domain

import "time"

// Date truncates t to a UTC calendar date. Certificate validity and
// inspection scheduling operate on dates, not instants.
func Date(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole days from one calendar date to another.
// Negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)).Hours() / 24)
}
