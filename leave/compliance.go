/*
compliance.go - Minimum-usage and near-expiration checks

PURPOSE:
  Two read-only checks over the ledger. The minimum-usage rule requires
  every employee to use at least the configured number of days from a
  given year's grant within that fiscal year - usage of older carried
  grants does not count. The near-expiration check lists grants about to
  forfeit their remaining days so employees can be warned.
*/
package leave

import (
	"fmt"
	"sort"
)

// CheckFiveDayCompliance evaluates the minimum annual-usage rule for
// every employee holding a grant for the fiscal year. Compliance is per
// that specific year's grant, not cumulative across years; the boundary
// is inclusive (used == minimum is compliant).
func (e *Engine) CheckFiveDayCompliance(l *Ledger, fiscalYear int) []ComplianceStatus {
	var out []ComplianceStatus
	for _, id := range l.EmployeeIDs() {
		a := l.accounts[id]
		g := a.grant(fiscalYear)
		if g == nil {
			continue
		}
		out = append(out, ComplianceStatus{
			EmployeeID: id,
			FiscalYear: fiscalYear,
			UsedDays:   g.Used,
			Compliant:  g.Used.GreaterThanOrEqual(e.cfg.MinimumAnnualUse),
		})
	}
	return out
}

// CheckExpiringSoon returns the employee's grants that still hold days
// and whose expiration date falls within withinDays of asOf, sorted
// soonest-expiring first.
func (e *Engine) CheckExpiringSoon(l *Ledger, id EmployeeID, asOf Date, withinDays int) ([]YearlyGrant, error) {
	if withinDays <= 0 {
		return nil, fmt.Errorf("%w: within_days %d, must be positive", ErrInvalidArgument, withinDays)
	}
	grants, err := l.Grants(id)
	if err != nil {
		return nil, err
	}

	horizon := asOf.AddDays(withinDays)
	var out []YearlyGrant
	for _, g := range grants {
		if !g.Deductible() {
			continue
		}
		if g.ExpirationDate.Before(asOf) || g.ExpirationDate.After(horizon) {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpirationDate.Before(out[j].ExpirationDate)
	})
	return out, nil
}
