/*
Package leave implements the fiscal-year leave balance engine.

PURPOSE:
  This package computes how many paid-leave days an employee is entitled
  to, tracks per-fiscal-year grant/use/expiration state, and deducts
  requested days using the newest-grant-first (LIFO) consumption order
  required for labor-law compliance. It also runs the year-end carry-over
  transition and the 5-day minimum-usage check.

KEY CONCEPTS IN THIS FILE (types.go):
  - FiscalConfig: Immutable configuration value passed into the engine
  - YearlyGrant: One grant of leave days per employee per fiscal year
  - GrantState: active -> exhausted / expired (both terminal)
  - DeductionResult / CarryoverResult: Audit-grade operation outcomes

DESIGN PRINCIPLES:
  1. Purity: The engine performs no I/O; it mutates only the Ledger
     value handed to it. Persistence lives behind Repository.
  2. Precision: Uses decimal.Decimal for day counts so repeated 0.5-day
     deductions never accumulate binary-float error.
  3. Explicit configuration: No package-level mutable state. Every
     engine is built from a validated FiscalConfig.
  4. Auditability: Expired grants are retained, never deleted, and every
     mutation produces a per-year breakdown for the audit recorder.

USAGE:
  engine, err := leave.NewEngine(leave.DefaultFiscalConfig(), leave.DefaultGrantTable(), nil)
  result, err := engine.ApplyDeduction(ledger, "emp-1", leave.Days(3), 2025)

SEE ALSO:
  - ledger.go: The in-memory ledger and its invariants
  - deduction.go: LIFO deduction
  - carryover.go: Year-end expiration and new-year grants
  - compliance.go: Minimum-usage and near-expiration checks
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS AND QUANTITIES
// =============================================================================

// EmployeeID identifies an employee. Identity is owned by the caller;
// the engine only needs the id and the hire date.
type EmployeeID string

// Days builds a day quantity from an integer count.
func Days(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

// HalfDay is the smallest grant and deduction increment.
var HalfDay = decimal.New(5, -1)

// IsHalfDayIncrement reports whether d is a whole multiple of half a day.
func IsHalfDayIncrement(d decimal.Decimal) bool {
	return d.Mod(HalfDay).IsZero()
}

// =============================================================================
// FISCAL CONFIG - Immutable engine configuration
// =============================================================================

// FiscalConfig is the explicit configuration value every engine is built
// from. It replaces the module-level constants of earlier revisions so
// that tests can run in parallel and tenants can differ.
type FiscalConfig struct {
	// PeriodStartDay is the day of month a fiscal period opens (the 21st).
	PeriodStartDay int

	// PeriodEndDay is the day of month a fiscal period closes (the 20th).
	// Must be PeriodStartDay - 1.
	PeriodEndDay int

	// FiscalYearStartMonth is the month whose PeriodStartDay opens the
	// fiscal year.
	FiscalYearStartMonth time.Month

	// MaxCarryOverYears is how many fiscal years a grant outlives its
	// grant year before it expires.
	MaxCarryOverYears int

	// MaxAccumulatedDays caps the sum of remaining days across all
	// non-expired grants, enforced at carry-over time.
	MaxAccumulatedDays decimal.Decimal

	// MinimumAnnualUse is the number of days an employee must use from a
	// given year's grant within that fiscal year.
	MinimumAnnualUse decimal.Decimal
}

// DefaultFiscalConfig returns the statutory defaults: 21st-to-20th
// periods, January fiscal-year start, 2-year carry-over, 40-day
// accumulation cap, 5-day minimum annual use.
func DefaultFiscalConfig() FiscalConfig {
	return FiscalConfig{
		PeriodStartDay:       21,
		PeriodEndDay:         20,
		FiscalYearStartMonth: time.January,
		MaxCarryOverYears:    2,
		MaxAccumulatedDays:   Days(40),
		MinimumAnnualUse:     Days(5),
	}
}

// Validate checks the configuration at startup. Malformed values are a
// deployment problem, so failures are *ConfigurationError (fatal).
func (c FiscalConfig) Validate() error {
	if c.PeriodStartDay < 1 || c.PeriodStartDay > 28 {
		return &ConfigurationError{Field: "period_start_day", Reason: "must be between 1 and 28 so every month has the boundary day"}
	}
	if c.PeriodEndDay != c.PeriodStartDay-1 {
		return &ConfigurationError{Field: "period_end_day", Reason: "must be period_start_day - 1"}
	}
	if c.FiscalYearStartMonth < time.January || c.FiscalYearStartMonth > time.December {
		return &ConfigurationError{Field: "fiscal_year_start_month", Reason: "must be a calendar month"}
	}
	if c.MaxCarryOverYears < 1 {
		return &ConfigurationError{Field: "max_carry_over_years", Reason: "must be at least 1"}
	}
	if !c.MaxAccumulatedDays.IsPositive() {
		return &ConfigurationError{Field: "max_accumulated_days", Reason: "must be positive"}
	}
	if c.MinimumAnnualUse.IsNegative() {
		return &ConfigurationError{Field: "minimum_annual_use", Reason: "must not be negative"}
	}
	if !IsHalfDayIncrement(c.MaxAccumulatedDays) || !IsHalfDayIncrement(c.MinimumAnnualUse) {
		return &ConfigurationError{Field: "day quantities", Reason: "must be half-day increments"}
	}
	return nil
}

// =============================================================================
// YEARLY GRANT - One grant per employee per fiscal year
// =============================================================================

// GrantState is the lifecycle state of a YearlyGrant.
//
//	active -> exhausted  (remaining hits zero via deduction)
//	active -> expired    (carry-over processor at the age limit)
//
// Both transitions are terminal. Expiration is a state, not removal:
// expired grants stay in the ledger for the retention requirement.
type GrantState string

const (
	GrantActive    GrantState = "active"
	GrantExhausted GrantState = "exhausted"
	GrantExpired   GrantState = "expired"
)

// YearlyGrant is one allotment of paid-leave days issued for a fiscal
// year. Remaining days are always derived from Granted - Used, never
// stored independently of their inputs.
type YearlyGrant struct {
	FiscalYear     int
	Granted        decimal.Decimal
	Used           decimal.Decimal
	GrantDate      Date
	ExpirationDate Date
	State          GrantState
}

// Remaining returns Granted - Used.
func (g YearlyGrant) Remaining() decimal.Decimal {
	return g.Granted.Sub(g.Used)
}

// Deductible reports whether the grant can still supply days.
func (g YearlyGrant) Deductible() bool {
	return g.State == GrantActive && g.Remaining().IsPositive()
}

// =============================================================================
// OPERATION RESULTS
// =============================================================================

// DeductionLine is one (fiscal year, days) slice of a LIFO deduction.
type DeductionLine struct {
	FiscalYear int
	Days       decimal.Decimal
}

// DeductionResult is the audit-grade outcome of a successful deduction.
// The per-year breakdown is required output, not just the total: the
// compliance checker and the audit trail both consume it.
type DeductionResult struct {
	EmployeeID    EmployeeID
	FiscalYear    int
	Requested     decimal.Decimal
	TotalDeducted decimal.Decimal
	Lines         []DeductionLine
}

// ExpiredGrant records one grant forfeited during carry-over.
type ExpiredGrant struct {
	FiscalYear int
	Forfeited  decimal.Decimal
}

// CarryoverResult is the outcome of a year-end transition.
type CarryoverResult struct {
	EmployeeID     EmployeeID
	FromYear       int
	ToYear         int
	SeniorityYears decimal.Decimal
	NewGrantDays   decimal.Decimal

	// Expired lists grants past the carry-over age limit, with the days
	// taken out of circulation.
	Expired []ExpiredGrant

	// CarriedRemaining is the total remaining on prior grants that stay
	// active into ToYear. Carry-over is implicit: the grants themselves
	// stay in the ledger until consumed or expired.
	CarriedRemaining decimal.Decimal

	// ForfeitedExcess is how far the post-carryover total exceeds the
	// accumulation cap. Reported for audit; no historical grant is
	// truncated to absorb it.
	ForfeitedExcess decimal.Decimal

	// AlreadyProcessed is true when the ToYear grant existed before this
	// run. The run is then a no-op apart from re-checking expirations.
	AlreadyProcessed bool
}

// ComplianceStatus is one employee's standing against the minimum
// annual-usage rule for a specific fiscal year's grant.
type ComplianceStatus struct {
	EmployeeID EmployeeID
	FiscalYear int
	UsedDays   decimal.Decimal
	Compliant  bool
}

// GrantRecommendation is the entitlement the engine would issue for an
// employee at a reference date.
type GrantRecommendation struct {
	EmployeeID     EmployeeID
	FiscalYear     int
	SeniorityYears decimal.Decimal
	Days           decimal.Decimal
}
