/*
seniority.go - Seniority calculation and the grant table

PURPOSE:
  Seniority indexes the grant table: elapsed employment duration in
  fractional years decides how many days an employee is entitled to.

CALENDAR ACCURACY:
  Naive day-count division gets the statutory boundaries wrong: an
  employee hired January 1 reaches six months on July 1, but
  182/366 = 0.497 years under day division. Seniority is therefore
  counted in whole calendar months first (month-end anniversaries
  clamped, so Jan 31 + 1 month = Feb 28/29), with the days past the
  last monthly anniversary contributing a sub-month fraction. Exactly
  six months is exactly 0.5 years; six months and one day is strictly
  greater.

GRANT TABLE:
  An ordered list of (seniority threshold, granted days) pairs. Lookup
  returns the days of the greatest threshold <= seniority. Below the
  first threshold the entitlement is zero; the top entry is a floor,
  not a ceiling cutoff (50 years of service still maps to the 6.5-year
  row).
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

var monthsPerYear = decimal.NewFromInt(12)

// SeniorityYears computes elapsed employment time in fractional years.
// Fails with ErrInvalidDate if referenceDate precedes hireDate.
func SeniorityYears(hireDate, referenceDate Date) (decimal.Decimal, error) {
	if referenceDate.Before(hireDate) {
		return decimal.Zero, &seniorityDateError{hire: hireDate, reference: referenceDate}
	}

	months := wholeMonthsBetween(hireDate, referenceDate)

	// Fraction of the current monthly span, so one extra day moves the
	// result strictly past the month boundary.
	last := monthlyAnniversary(hireDate, months)
	next := monthlyAnniversary(hireDate, months+1)
	span := DaysBetween(last, next)
	extra := DaysBetween(last, referenceDate)

	monthFraction := decimal.Zero
	if extra > 0 {
		monthFraction = decimal.NewFromInt(int64(extra)).Div(decimal.NewFromInt(int64(span)))
	}

	return decimal.NewFromInt(int64(months)).Add(monthFraction).Div(monthsPerYear), nil
}

// wholeMonthsBetween counts complete calendar months from hire to ref.
func wholeMonthsBetween(hire, ref Date) int {
	months := (ref.Year()-hire.Year())*12 + int(ref.Month()) - int(hire.Month())
	if months < 0 {
		return 0
	}
	if monthlyAnniversary(hire, months).After(ref) {
		months--
	}
	return months
}

// monthlyAnniversary returns the n-th monthly anniversary of a date,
// clamping to the last day of shorter months (Jan 31 -> Feb 28).
func monthlyAnniversary(d Date, n int) Date {
	year := d.Year()
	month := int(d.Month()) + n
	year += (month - 1) / 12
	month = (month-1)%12 + 1

	day := d.Day()
	if max := DaysInMonth(year, time.Month(month)); day > max {
		day = max
	}
	return NewDate(year, time.Month(month), day)
}

type seniorityDateError struct {
	hire      Date
	reference Date
}

func (e *seniorityDateError) Error() string {
	return "invalid date: reference " + e.reference.String() + " precedes hire " + e.hire.String()
}

func (e *seniorityDateError) Unwrap() error { return ErrInvalidDate }

// =============================================================================
// GRANT TABLE - Seniority threshold -> entitled days
// =============================================================================

// GrantStep is one row of the grant table.
type GrantStep struct {
	Threshold decimal.Decimal // minimum seniority in years
	Days      decimal.Decimal // entitled days at and above the threshold
}

// GrantTable maps seniority to entitled days via a monotonic threshold
// lookup. The table must be ordered by strictly increasing threshold
// with non-decreasing days.
type GrantTable []GrantStep

// DefaultGrantTable returns the statutory entitlement schedule.
func DefaultGrantTable() GrantTable {
	step := func(threshold string, days int) GrantStep {
		return GrantStep{Threshold: decimal.RequireFromString(threshold), Days: Days(days)}
	}
	return GrantTable{
		step("0.5", 10),
		step("1.5", 11),
		step("2.5", 12),
		step("3.5", 14),
		step("4.5", 16),
		step("5.5", 18),
		step("6.5", 20),
	}
}

// Validate checks the table shape at load time.
func (t GrantTable) Validate() error {
	if len(t) == 0 {
		return &ConfigurationError{Field: "grant_table", Reason: "must not be empty"}
	}
	for i, s := range t {
		if !s.Threshold.IsPositive() {
			return &ConfigurationError{Field: "grant_table", Reason: "thresholds must be positive"}
		}
		if s.Days.IsNegative() || !IsHalfDayIncrement(s.Days) {
			return &ConfigurationError{Field: "grant_table", Reason: "days must be non-negative half-day increments"}
		}
		if i > 0 {
			if s.Threshold.LessThanOrEqual(t[i-1].Threshold) {
				return &ConfigurationError{Field: "grant_table", Reason: "thresholds must be strictly increasing"}
			}
			if s.Days.LessThan(t[i-1].Days) {
				return &ConfigurationError{Field: "grant_table", Reason: "days must be non-decreasing"}
			}
		}
	}
	return nil
}

// GrantedDays returns the days of the greatest threshold <= seniority,
// or zero below the first threshold. Negative seniority maps to zero.
func (t GrantTable) GrantedDays(seniority decimal.Decimal) decimal.Decimal {
	days := decimal.Zero
	for _, s := range t {
		if seniority.GreaterThanOrEqual(s.Threshold) {
			days = s.Days
		} else {
			break
		}
	}
	return days
}
