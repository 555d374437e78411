/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is/errors.As; structured errors carry the
  context the API layer and the audit trail need.

ERROR CATEGORIES:
  1. Client errors - bad arguments, insufficient balance (recoverable)
  2. Integrity errors - a ledger invariant broke after a mutation (fatal)
  3. Configuration errors - malformed config or grant table (fatal at load)

USAGE:
  if errors.Is(err, leave.ErrInsufficientBalance) {
      // reject the leave request, ledger is untouched
  }
  var integrity *leave.LedgerIntegrityError
  if errors.As(err, &integrity) {
      log.Error("ledger corrupted", integrity.Snapshot)
  }
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when a reference date precedes the hire
	// date or period math is handed a malformed date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidArgument is returned for non-positive or non-half-day
	// deduction amounts and other caller mistakes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmployeeNotFound is returned when a referenced employee has no
	// account in the ledger.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrInsufficientBalance is returned when a requested deduction
	// exceeds the eligible remaining days. The ledger is left untouched.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLedgerIntegrity is returned when a ledger invariant is violated
	// after a mutation. This signals a bug or upstream data corruption
	// and is never silently corrected.
	ErrLedgerIntegrity = errors.New("ledger integrity violation")

	// ErrConfiguration is returned when the fiscal config or grant table
	// is malformed at load time.
	ErrConfiguration = errors.New("invalid configuration")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports how short the eligible balance is.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: requested %s, available %s",
		e.EmployeeID, e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall returns how many days the request exceeds the balance by.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// LedgerIntegrityError reports a broken invariant together with a full
// snapshot of the offending account, so the corruption can be diagnosed
// without replaying the mutation.
type LedgerIntegrityError struct {
	EmployeeID EmployeeID
	Violation  string
	Snapshot   string
}

func (e *LedgerIntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity violation for %s: %s", e.EmployeeID, e.Violation)
}

func (e *LedgerIntegrityError) Unwrap() error { return ErrLedgerIntegrity }

// ConfigurationError reports a malformed configuration field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// or a recoverable business rejection.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrInsufficientBalance)
}

// IsFatal returns true if the error indicates corruption or a broken
// deployment rather than a bad request.
func IsFatal(err error) bool {
	return errors.Is(err, ErrLedgerIntegrity) ||
		errors.Is(err, ErrConfiguration)
}
