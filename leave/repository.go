/*
repository.go - Persistence contract for ledgers

PURPOSE:
  The engine computes; the repository owns state. A repository supplies
  the current ledger for an employee, persists the mutated result, and
  provides the per-employee mutual exclusion the engine's concurrency
  contract requires: balance-check-and-deduct must be atomic per
  employee, or two concurrent requests could both pass the sufficiency
  check and drive a balance negative.

IMPLEMENTATIONS:
  - leave/store: in-memory, for tests and development
  - store/sqlite: SQLite-backed, transactional
*/
package leave

import "context"

// Repository loads and persists per-employee ledger state.
type Repository interface {
	// AddEmployee registers an employee account.
	AddEmployee(ctx context.Context, id EmployeeID, hireDate Date) error

	// WithEmployee loads the employee's ledger, runs fn against it, and
	// persists the result if fn returns nil - all under per-employee
	// mutual exclusion. If fn returns an error nothing is persisted.
	WithEmployee(ctx context.Context, id EmployeeID, fn func(l *Ledger) error) error

	// ViewEmployee returns a read-only copy of the employee's ledger.
	ViewEmployee(ctx context.Context, id EmployeeID) (*Ledger, error)

	// Snapshot returns a read-only copy of the full ledger, for
	// reporting across employees.
	Snapshot(ctx context.Context) (*Ledger, error)

	// Employees lists all registered employee ids.
	Employees(ctx context.Context) ([]EmployeeID, error)
}
