// Package shared holds small value helpers used across the
// reconciliation domain: fixed-point currency amounts and
// calendar-day date arithmetic.
package shared

import (
	"fmt"
	"time"
)

// Amounts are stored in cents/minor units throughout the system.
// Comparing two amounts for equality is therefore an exact integer
// comparison at 2-decimal currency resolution, never a float compare.

// AbsCents returns the absolute value of an amount in cents.
func AbsCents(cents int64) int64 {
	if cents < 0 {
		return -cents
	}
	return cents
}

// DiffCents returns the absolute difference between two amounts in cents.
func DiffCents(a, b int64) int64 {
	return AbsCents(a - b)
}

// PercentOfCents returns pct% of the absolute value of cents, rounded
// to the nearest cent. Used for percentage-based tolerance bands.
func PercentOfCents(cents int64, pct float64) int64 {
	abs := AbsCents(cents)
	return int64(float64(abs)*pct/100.0 + 0.5)
}

// FormatCents renders an amount in cents as a decimal string, e.g.
// 15000 -> "150.00", -4250 -> "-42.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// NormalizeDay truncates a timestamp to its local calendar day.
func NormalizeDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayDiff returns the absolute difference in whole calendar days
// between two timestamps. Comparison is day-granular: times within the
// same calendar day always yield 0.
func DayDiff(a, b time.Time) int {
	da := NormalizeDay(a)
	db := NormalizeDay(b)
	diff := int(da.Sub(db).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}
