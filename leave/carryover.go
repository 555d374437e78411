/*
carryover.go - Year-end carry-over and expiration

PURPOSE:
  The fiscal year-end transition, run once per employee:

  1. Create the new year's grant from seniority at the new period start
     and the grant table.
  2. Expire grants past the carry-over age limit; their remaining days
     leave circulation, reported as forfeited, the grants themselves
     retained for history.
  3. Leave newer prior grants active. Carry-over is implicit: older
     grants simply remain available until consumed or expired. There is
     no merge step, which preserves per-year auditability for the
     retention requirement.
  4. Check the accumulation cap. Excess is reported as ForfeitedExcess
     for audit only; no historical grant is truncated to absorb it.

IDEMPOTENCE:
  Running the same (employee, fromYear, toYear) transition twice with no
  intervening deductions produces an identical ledger: an existing
  toYear grant is detected and re-creation skipped.
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProcessYearEndCarryover runs the fiscal year-end transition for one
// employee. The caller must hold per-employee exclusion: the run is not
// idempotent against deductions happening concurrently mid-run.
func (e *Engine) ProcessYearEndCarryover(l *Ledger, id EmployeeID, fromYear, toYear int) (*CarryoverResult, error) {
	if fromYear <= 0 || toYear <= 0 {
		return nil, fmt.Errorf("%w: fiscal years %d -> %d", ErrInvalidArgument, fromYear, toYear)
	}
	if toYear <= fromYear {
		return nil, fmt.Errorf("%w: carry-over target year %d must follow source year %d",
			ErrInvalidArgument, toYear, fromYear)
	}

	result := &CarryoverResult{EmployeeID: id, FromYear: fromYear, ToYear: toYear}

	err := l.mutate(id, func(a *account) error {
		periodStart := e.calendar.YearPeriod(toYear).Start

		seniority := decimal.Zero
		if !periodStart.Before(a.hireDate) {
			var err error
			seniority, err = SeniorityYears(a.hireDate, periodStart)
			if err != nil {
				return err
			}
		}
		result.SeniorityYears = seniority

		// Step 1: the new year's grant, exactly once per fiscal year.
		if existing := a.grant(toYear); existing != nil {
			result.AlreadyProcessed = true
			result.NewGrantDays = existing.Granted
		} else {
			days := e.table.GrantedDays(seniority)
			result.NewGrantDays = days
			if days.IsPositive() {
				grant := e.newYearlyGrant(toYear, days)
				a.grants = append(a.grants, &grant)
			}
		}

		// Step 2: expire grants past the age limit. Exhausted grants are
		// already terminal and have nothing left to forfeit.
		cutoff := fromYear - e.cfg.MaxCarryOverYears
		for _, g := range a.grants {
			if g.FiscalYear > cutoff || g.State != GrantActive {
				continue
			}
			result.Expired = append(result.Expired, ExpiredGrant{
				FiscalYear: g.FiscalYear,
				Forfeited:  g.Remaining(),
			})
			g.State = GrantExpired
		}

		// Step 3: prior grants inside the window stay active; report
		// what they carry into the new year.
		carried := decimal.Zero
		total := decimal.Zero
		for _, g := range a.grants {
			if g.State == GrantExpired {
				continue
			}
			total = total.Add(g.Remaining())
			if g.FiscalYear < toYear {
				carried = carried.Add(g.Remaining())
			}
		}
		result.CarriedRemaining = carried

		// Step 4: accumulation cap, reported only.
		if total.GreaterThan(e.cfg.MaxAccumulatedDays) {
			result.ForfeitedExcess = total.Sub(e.cfg.MaxAccumulatedDays)
		} else {
			result.ForfeitedExcess = decimal.Zero
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordCarryover(result)
	return result, nil
}
