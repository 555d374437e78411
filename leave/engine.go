/*
engine.go - The engine facade

PURPOSE:
  Bundles the validated configuration, the grant table, the fiscal
  calendar, and the audit recorder into the single value the service
  layer calls. Every operation takes the Ledger explicitly: the engine
  owns rules, the caller owns state and its persistence.

CONCURRENCY CONTRACT:
  The engine is synchronous and not internally locked. If invoked under
  per-employee mutual exclusion (the Repository provides it), it is
  internally consistent and order-independent between employees.
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Engine evaluates leave entitlement, deduction, carry-over, and
// compliance rules over a Ledger.
type Engine struct {
	cfg      FiscalConfig
	table    GrantTable
	calendar FiscalCalendar
	audit    Recorder
}

// NewEngine validates the configuration and grant table and returns a
// ready engine. A nil recorder disables audit events.
func NewEngine(cfg FiscalConfig, table GrantTable, audit Recorder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if audit == nil {
		audit = NopRecorder{}
	}
	return &Engine{
		cfg:      cfg,
		table:    table,
		calendar: NewFiscalCalendar(cfg),
		audit:    audit,
	}, nil
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() FiscalConfig { return e.cfg }

// Calendar returns the fiscal calendar derived from the configuration.
func (e *Engine) Calendar() FiscalCalendar { return e.calendar }

// GrantTable returns the entitlement schedule.
func (e *Engine) GrantTable() GrantTable { return e.table }

// =============================================================================
// RECOMMENDATION AND ONBOARDING
// =============================================================================

// Recommendation computes the entitlement the engine would issue for an
// employee at the reference date: seniority, entitled days, and the
// fiscal year the grant would belong to.
func (e *Engine) Recommendation(l *Ledger, id EmployeeID, asOf Date) (*GrantRecommendation, error) {
	hire, err := l.HireDate(id)
	if err != nil {
		return nil, err
	}
	seniority, err := SeniorityYears(hire, asOf)
	if err != nil {
		return nil, err
	}
	return &GrantRecommendation{
		EmployeeID:     id,
		FiscalYear:     e.calendar.FiscalYearOf(asOf),
		SeniorityYears: seniority,
		Days:           e.table.GrantedDays(seniority),
	}, nil
}

// IssueInitialGrant creates the employee's first grant from the
// recommendation at asOf. Subsequent grants are created by the
// carry-over processor.
func (e *Engine) IssueInitialGrant(l *Ledger, id EmployeeID, asOf Date) (*YearlyGrant, error) {
	rec, err := e.Recommendation(l, id, asOf)
	if err != nil {
		return nil, err
	}
	if !rec.Days.IsPositive() {
		return nil, fmt.Errorf("%w: employee %s has seniority %s, below the first grant threshold",
			ErrInvalidArgument, id, rec.SeniorityYears)
	}
	grant := e.newYearlyGrant(rec.FiscalYear, rec.Days)
	if err := l.AddGrant(id, grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// newYearlyGrant builds a fresh grant for a fiscal year, with its grant
// and expiration dates derived from the fiscal calendar.
func (e *Engine) newYearlyGrant(fiscalYear int, days decimal.Decimal) YearlyGrant {
	grantDate, expirationDate := e.calendar.GrantPeriods(fiscalYear, e.cfg.MaxCarryOverYears)
	return YearlyGrant{
		FiscalYear:     fiscalYear,
		Granted:        days,
		Used:           decimal.Zero,
		GrantDate:      grantDate,
		ExpirationDate: expirationDate,
		State:          GrantActive,
	}
}
