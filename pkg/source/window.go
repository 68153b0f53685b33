package source

import "time"

// Window bounds a fetch to [Start, End]. A zero bound means unbounded on
// that side; adapters that cannot express that server-side filter locally.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, both bounds inclusive.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// LastDays returns a window covering the n days up to now.
func LastDays(n int) Window {
	now := time.Now().UTC()
	return Window{Start: now.AddDate(0, 0, -n), End: now}
}
