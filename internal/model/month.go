package model

import (
	"fmt"
	"time"
)

// MonthKey identifies one calendar month. It is the unit of statistics
// regeneration: every cache row belongs to exactly one MonthKey.
type MonthKey struct {
	Year  int
	Month int
}

// MonthKeyOf derives the month a timestamp falls in, using the timestamp's
// own location so the ledger and the statistics agree on day boundaries.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: int(t.Month())}
}

// CurrentMonth returns the key for the month containing now.
func CurrentMonth(now time.Time) MonthKey {
	return MonthKeyOf(now)
}

// String formats the key as "YYYY-MM".
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Start returns the first instant of the month in local time.
func (k MonthKey) Start() time.Time {
	return time.Date(k.Year, time.Month(k.Month), 1, 0, 0, 0, 0, time.Local)
}

// End returns the first instant of the following month; the month covers
// [Start, End).
func (k MonthKey) End() time.Time {
	return k.Start().AddDate(0, 1, 0)
}

// Prev returns the preceding calendar month.
func (k MonthKey) Prev() MonthKey {
	return MonthKeyOf(k.Start().AddDate(0, -1, 0))
}

// Next returns the following calendar month.
func (k MonthKey) Next() MonthKey {
	return MonthKeyOf(k.Start().AddDate(0, 1, 0))
}

// Valid reports whether the key denotes a plausible calendar month.
func (k MonthKey) Valid() bool {
	return k.Year >= 1 && k.Month >= 1 && k.Month <= 12
}
