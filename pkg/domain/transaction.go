package domain

import (
	"time"
)

// Direction tells which way money moved.
type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

// Category is a (large, medium) category pair as named by the destination ledger.
type Category struct {
	Large  string `json:"large" yaml:"large"`
	Medium string `json:"medium" yaml:"medium"`
}

// Record is one raw row of source history. Amount is always a magnitude; the
// direction is only known once the description has been classified.
type Record struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
}

// Transaction is the canonical form both ledgers are compared in.
// Positive amounts are income (charges), negative amounts are expenses.
type Transaction struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Category    *Category `json:"category,omitempty"`
}

// Direction derives the direction from the sign of the amount.
func (t *Transaction) Direction() Direction {
	if t.Amount < 0 {
		return Expense
	}
	return Income
}

// Magnitude returns |Amount|.
func (t *Transaction) Magnitude() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// Day returns midnight UTC of the given calendar date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the clock from t, keeping the calendar date as seen in t's
// own location.
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return Day(year, month, day)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
