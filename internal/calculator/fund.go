package calculator

import (
	"math"
	"time"
)

// ElapsedMonths counts calendar months between applied and now, ignoring the day of month.
// A date in the future yields 0.
func ElapsedMonths(applied, now time.Time) int {
	months := (now.Year()-applied.Year())*12 + int(now.Month()) - int(applied.Month())
	if months < 0 {
		return 0
	}
	return months
}

// FundValue compounds principal monthly at rate for the given number of months.
func FundValue(principal, rate float64, months int) float64 {
	if months <= 0 || rate == 0 {
		return principal
	}
	return principal * math.Pow(1+rate, float64(months))
}

// FundValueAt values a fund applied at applied as of now.
func FundValueAt(principal, rate float64, applied, now time.Time) float64 {
	return FundValue(principal, rate, ElapsedMonths(applied, now))
}
