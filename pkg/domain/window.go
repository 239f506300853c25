package domain

import (
	"time"
)

// Window is the trailing span a sync run looks at: from the first day of the
// previous calendar month up to today.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow computes the window for a run happening on today.
func NewWindow(today time.Time) Window {
	end := DateOf(today)
	return Window{
		Start: Day(end.Year(), end.Month()-1, 1), // time.Date normalises January - 1
		End:   end,
	}
}

// Contains reports whether date is on or after the window start. Dates after
// End are not rejected.
func (w Window) Contains(date time.Time) bool {
	return !DateOf(date).Before(w.Start)
}

// Months returns the first day of each calendar month the window covers, in
// ascending order.
func (w Window) Months() []time.Time {
	months := []time.Time{}
	last := Day(w.End.Year(), w.End.Month(), 1)
	for m := w.Start; !m.After(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}
