// Package period derives canonical bonus periods from timestamps.
//
// Every source adapter stamps its normalized rows with the same
// (quarter, year) key and Monday-Friday week window, so the values
// computed here are the cross-source join key for the whole pipeline.
package period

import "time"

// Key identifies a bonus-evaluation period.
type Key struct {
	Quarter int
	Year    int
}

// QuarterOf returns the calendar quarter (1..4) containing t.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// KeyOf returns the (quarter, year) pair containing t.
func KeyOf(t time.Time) Key {
	return Key{Quarter: QuarterOf(t), Year: t.Year()}
}

// WeekWindowOf returns the Monday and Friday of the ISO week containing t.
// Both bounds are dates at midnight UTC.
func WeekWindowOf(t time.Time) (start, end time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	// time.Weekday counts Sunday as 0; shift so Monday is 0.
	offset := (int(day.Weekday()) + 6) % 7
	start = day.AddDate(0, 0, -offset)
	end = start.AddDate(0, 0, 4)
	return start, end
}

// WeekNumberOf returns the ISO 8601 week number containing t.
func WeekNumberOf(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// QuarterStart returns the first day of the quarter containing t, in UTC.
func QuarterStart(t time.Time) time.Time {
	month := time.Month((QuarterOf(t)-1)*3 + 1)
	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, time.UTC)
}
