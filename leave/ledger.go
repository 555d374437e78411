/*
ledger.go - The in-memory leave balance ledger

PURPOSE:
  The Ledger is the single shared state every engine algorithm reads and
  writes: per employee, the ordered collection of yearly grants. It is a
  plain value supplied by the caller; persistence and per-employee
  locking live in the repository layer.

CRITICAL INVARIANTS (re-validated after every mutation):
  1. remaining >= 0 for every grant
  2. used <= granted for every grant
  3. no two grants share a fiscal year for the same employee
  4. expired grants are retained for history, never deleted
  5. all quantities are half-day increments

  A violation is a *LedgerIntegrityError carrying a full account
  snapshot. It indicates a bug or upstream data corruption and is never
  silently corrected.

ALL-OR-NOTHING MUTATIONS:
  Every mutation runs against a deep copy of the employee's account and
  is committed only after validation passes. A failure partway through a
  multi-grant operation therefore leaves the ledger untouched.

SEE ALSO:
  - deduction.go: The only mutator of used days
  - carryover.go: The only creator of grants and setter of expirations
*/
package leave

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

// account is one employee's slice of the ledger: identity plus grants
// in ascending fiscal-year order.
type account struct {
	id       EmployeeID
	hireDate Date
	grants   []*YearlyGrant
}

// Ledger holds the leave balance state for a set of employees.
// It is not internally synchronized: callers serialize access per
// employee (see the Repository contract).
type Ledger struct {
	accounts map[EmployeeID]*account
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[EmployeeID]*account)}
}

// AddEmployee registers an employee account with no grants.
func (l *Ledger) AddEmployee(id EmployeeID, hireDate Date) error {
	if id == "" {
		return fmt.Errorf("%w: empty employee id", ErrInvalidArgument)
	}
	if hireDate.IsZero() {
		return fmt.Errorf("%w: zero hire date for %s", ErrInvalidDate, id)
	}
	if _, exists := l.accounts[id]; exists {
		return fmt.Errorf("%w: employee %s already exists", ErrInvalidArgument, id)
	}
	l.accounts[id] = &account{id: id, hireDate: hireDate}
	return nil
}

// HasEmployee reports whether the employee has an account.
func (l *Ledger) HasEmployee(id EmployeeID) bool {
	_, ok := l.accounts[id]
	return ok
}

// HireDate returns the employee's hire date.
func (l *Ledger) HireDate(id EmployeeID) (Date, error) {
	a, ok := l.accounts[id]
	if !ok {
		return Date{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	return a.hireDate, nil
}

// EmployeeIDs returns all employee ids in stable order.
func (l *Ledger) EmployeeIDs() []EmployeeID {
	ids := make([]EmployeeID, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// =============================================================================
// READ ACCESSORS
// =============================================================================

// Grants returns the employee's grants in ascending fiscal-year order.
func (l *Ledger) Grants(id EmployeeID) ([]YearlyGrant, error) {
	a, ok := l.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	out := make([]YearlyGrant, len(a.grants))
	for i, g := range a.grants {
		out[i] = *g
	}
	return out, nil
}

// BalanceBreakdown returns the per-year decomposition of an employee's
// balance, newest fiscal year first - the order the deduction engine
// consumes. asOfYear limits the view to grants issued in or before that
// fiscal year; pass 0 for all.
func (l *Ledger) BalanceBreakdown(id EmployeeID, asOfYear int) ([]YearlyGrant, error) {
	grants, err := l.Grants(id)
	if err != nil {
		return nil, err
	}
	var out []YearlyGrant
	for i := len(grants) - 1; i >= 0; i-- {
		if asOfYear > 0 && grants[i].FiscalYear > asOfYear {
			continue
		}
		out = append(out, grants[i])
	}
	return out, nil
}

// TotalRemaining sums remaining days across the employee's non-expired
// grants.
func (l *Ledger) TotalRemaining(id EmployeeID) (decimal.Decimal, error) {
	a, ok := l.accounts[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	total := decimal.Zero
	for _, g := range a.grants {
		if g.State != GrantExpired {
			total = total.Add(g.Remaining())
		}
	}
	return total, nil
}

// grant returns the employee's grant for a fiscal year, if any.
func (a *account) grant(fiscalYear int) *YearlyGrant {
	for _, g := range a.grants {
		if g.FiscalYear == fiscalYear {
			return g
		}
	}
	return nil
}

// =============================================================================
// MUTATION - clone, apply, validate, commit
// =============================================================================

// AddGrant inserts a grant for the employee. Used for onboarding the
// first grant; subsequent grants are created by the carry-over
// processor. Fails if the fiscal year already has a grant.
func (l *Ledger) AddGrant(id EmployeeID, g YearlyGrant) error {
	return l.mutate(id, func(a *account) error {
		if a.grant(g.FiscalYear) != nil {
			return fmt.Errorf("%w: employee %s already has a grant for fiscal year %d",
				ErrInvalidArgument, id, g.FiscalYear)
		}
		grant := g
		a.grants = append(a.grants, &grant)
		return nil
	})
}

// mutate applies fn to a deep copy of the employee's account, refreshes
// grant states, re-validates invariants, and commits only on success.
func (l *Ledger) mutate(id EmployeeID, fn func(a *account) error) error {
	a, ok := l.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}

	work := a.clone()
	if err := fn(work); err != nil {
		return err
	}

	work.sortGrants()
	work.refreshStates()
	if err := work.validate(); err != nil {
		return err
	}

	l.accounts[id] = work
	return nil
}

func (a *account) clone() *account {
	out := &account{id: a.id, hireDate: a.hireDate}
	out.grants = make([]*YearlyGrant, len(a.grants))
	for i, g := range a.grants {
		grant := *g
		out.grants[i] = &grant
	}
	return out
}

func (a *account) sortGrants() {
	sort.Slice(a.grants, func(i, j int) bool {
		return a.grants[i].FiscalYear < a.grants[j].FiscalYear
	})
}

// refreshStates applies the active -> exhausted transition. Expired is
// set only by the carry-over processor and is terminal.
func (a *account) refreshStates() {
	for _, g := range a.grants {
		if g.State == GrantActive && g.Remaining().IsZero() {
			g.State = GrantExhausted
		}
	}
}

func (a *account) validate() error {
	seen := make(map[int]bool, len(a.grants))
	for _, g := range a.grants {
		if seen[g.FiscalYear] {
			return a.integrityError(fmt.Sprintf("duplicate grant for fiscal year %d", g.FiscalYear))
		}
		seen[g.FiscalYear] = true

		if g.Granted.IsNegative() {
			return a.integrityError(fmt.Sprintf("fiscal year %d: granted days %s is negative", g.FiscalYear, g.Granted))
		}
		if g.Used.IsNegative() {
			return a.integrityError(fmt.Sprintf("fiscal year %d: used days %s is negative", g.FiscalYear, g.Used))
		}
		if g.Used.GreaterThan(g.Granted) {
			return a.integrityError(fmt.Sprintf("fiscal year %d: used %s exceeds granted %s", g.FiscalYear, g.Used, g.Granted))
		}
		if g.Remaining().IsNegative() {
			return a.integrityError(fmt.Sprintf("fiscal year %d: remaining %s is negative", g.FiscalYear, g.Remaining()))
		}
		if !IsHalfDayIncrement(g.Granted) || !IsHalfDayIncrement(g.Used) {
			return a.integrityError(fmt.Sprintf("fiscal year %d: quantities are not half-day increments", g.FiscalYear))
		}
		switch g.State {
		case GrantActive, GrantExpired:
		case GrantExhausted:
			if !g.Remaining().IsZero() {
				return a.integrityError(fmt.Sprintf("fiscal year %d: exhausted grant has remaining %s", g.FiscalYear, g.Remaining()))
			}
		default:
			return a.integrityError(fmt.Sprintf("fiscal year %d: unknown state %q", g.FiscalYear, g.State))
		}
	}
	return nil
}

func (a *account) integrityError(violation string) *LedgerIntegrityError {
	return &LedgerIntegrityError{
		EmployeeID: a.id,
		Violation:  violation,
		Snapshot:   a.snapshot(),
	}
}

// snapshot renders the full account for integrity-error logging.
func (a *account) snapshot() string {
	var b strings.Builder
	fmt.Fprintf(&b, "employee=%s hire=%s", a.id, a.hireDate)
	for _, g := range a.grants {
		fmt.Fprintf(&b, " [fy=%d granted=%s used=%s remaining=%s state=%s expires=%s]",
			g.FiscalYear, g.Granted, g.Used, g.Remaining(), g.State, g.ExpirationDate)
	}
	return b.String()
}

// =============================================================================
// COPY AND MERGE - For repositories with per-employee isolation
// =============================================================================

// Clone deep-copies the whole ledger.
func (l *Ledger) Clone() *Ledger {
	out := NewLedger()
	for id, a := range l.accounts {
		out.accounts[id] = a.clone()
	}
	return out
}

// ExtractEmployee returns a single-employee ledger deep copy.
func (l *Ledger) ExtractEmployee(id EmployeeID) (*Ledger, error) {
	a, ok := l.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	out := NewLedger()
	out.accounts[id] = a.clone()
	return out, nil
}

// MergeEmployee replaces this ledger's account for id with a deep copy
// of src's, validating the incoming account first.
func (l *Ledger) MergeEmployee(src *Ledger, id EmployeeID) error {
	a, ok := src.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	incoming := a.clone()
	if err := incoming.validate(); err != nil {
		return err
	}
	l.accounts[id] = incoming
	return nil
}
