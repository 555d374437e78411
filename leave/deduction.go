/*
deduction.go - LIFO deduction

PURPOSE:
  Consumes approved leave days from the ledger newest-grant-first. The
  labor-law compliance rule mandates that the most recently granted
  year is drawn down before older years, so older balances run into
  their expiration dates instead of being silently preserved.

ALGORITHM:
  Iterate the employee's grants newest fiscal year first, skipping
  expired grants and grants outside the eligibility window for the
  request's fiscal year. From each eligible grant take
  min(remaining, outstanding), record a per-year line item, and stop
  when the request is satisfied.

ALL-OR-NOTHING:
  If the total eligible remaining is short of the request, nothing is
  deducted and *InsufficientBalanceError reports {requested, available}.
  The mutation runs on a cloned account and commits only after the
  ledger invariants re-validate.
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ApplyDeduction deducts days from the employee's balance for a leave
// request approved in fiscalYear, consuming newest grants first.
//
// The caller must hold per-employee exclusion (see Repository): two
// concurrent deductions for the same employee could otherwise both pass
// the sufficiency check.
func (e *Engine) ApplyDeduction(l *Ledger, id EmployeeID, days decimal.Decimal, fiscalYear int) (*DeductionResult, error) {
	if !days.IsPositive() {
		return nil, fmt.Errorf("%w: deduction of %s days, must be positive", ErrInvalidArgument, days)
	}
	if !IsHalfDayIncrement(days) {
		return nil, fmt.Errorf("%w: deduction of %s days, must be a half-day increment", ErrInvalidArgument, days)
	}
	if fiscalYear <= 0 {
		return nil, fmt.Errorf("%w: fiscal year %d", ErrInvalidArgument, fiscalYear)
	}

	result := &DeductionResult{
		EmployeeID: id,
		FiscalYear: fiscalYear,
		Requested:  days,
	}

	err := l.mutate(id, func(a *account) error {
		eligible := e.eligibleGrants(a, fiscalYear)

		available := decimal.Zero
		for _, g := range eligible {
			available = available.Add(g.Remaining())
		}
		if available.LessThan(days) {
			return &InsufficientBalanceError{EmployeeID: id, Requested: days, Available: available}
		}

		outstanding := days
		for _, g := range eligible {
			if outstanding.IsZero() {
				break
			}
			take := decimal.Min(g.Remaining(), outstanding)
			g.Used = g.Used.Add(take)
			outstanding = outstanding.Sub(take)
			result.Lines = append(result.Lines, DeductionLine{FiscalYear: g.FiscalYear, Days: take})
			result.TotalDeducted = result.TotalDeducted.Add(take)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordDeduction(result)
	return result, nil
}

// eligibleGrants returns the grants a deduction in fiscalYear may draw
// from, newest first: non-expired, still holding days, issued no later
// than the request's year, and not yet past the carry-over age limit.
// The age check mirrors the carry-over expiration rule so a grant that
// should have expired is excluded even if the year-end run is late.
func (e *Engine) eligibleGrants(a *account, fiscalYear int) []*YearlyGrant {
	var eligible []*YearlyGrant
	for i := len(a.grants) - 1; i >= 0; i-- {
		g := a.grants[i]
		if !g.Deductible() {
			continue
		}
		if g.FiscalYear > fiscalYear {
			continue
		}
		if g.FiscalYear < fiscalYear-e.cfg.MaxCarryOverYears {
			continue
		}
		eligible = append(eligible, g)
	}
	return eligible
}
