/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Day
  quantities cross the wire as decimal strings, never binary floats, so
  half-day amounts round-trip exactly.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Response wrappers returned to clients
  - *DTO: Embedded pieces of responses

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/kintai/leave-engine/leave"
)

// =============================================================================
// REQUESTS
// =============================================================================

type CreateEmployeeRequest struct {
	ID       string `json:"id"`
	HireDate string `json:"hire_date"` // YYYY-MM-DD

	// IssueInitialGrant onboards the first grant immediately, as of
	// AsOf (default today). Fails if seniority is below the first
	// entitlement threshold.
	IssueInitialGrant bool   `json:"issue_initial_grant,omitempty"`
	AsOf              string `json:"as_of,omitempty"`
}

type DeductionRequest struct {
	Days       string `json:"days"` // decimal string, half-day increments
	FiscalYear int    `json:"fiscal_year"`
}

type CarryoverRequest struct {
	FromYear int `json:"from_year"`
	ToYear   int `json:"to_year"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type GrantDTO struct {
	FiscalYear     int    `json:"fiscal_year"`
	Granted        string `json:"granted_days"`
	Used           string `json:"used_days"`
	Remaining      string `json:"remaining_days"`
	GrantDate      string `json:"grant_date"`
	ExpirationDate string `json:"expiration_date"`
	State          string `json:"state"`
}

func toGrantDTO(g leave.YearlyGrant) GrantDTO {
	return GrantDTO{
		FiscalYear:     g.FiscalYear,
		Granted:        g.Granted.String(),
		Used:           g.Used.String(),
		Remaining:      g.Remaining().String(),
		GrantDate:      g.GrantDate.String(),
		ExpirationDate: g.ExpirationDate.String(),
		State:          string(g.State),
	}
}

func toGrantDTOs(grants []leave.YearlyGrant) []GrantDTO {
	out := make([]GrantDTO, 0, len(grants))
	for _, g := range grants {
		out = append(out, toGrantDTO(g))
	}
	return out
}

type EmployeeResponse struct {
	ID           string    `json:"id"`
	HireDate     string    `json:"hire_date"`
	InitialGrant *GrantDTO `json:"initial_grant,omitempty"`
}

type BalanceResponse struct {
	EmployeeID     string     `json:"employee_id"`
	AsOfYear       int        `json:"as_of_year,omitempty"`
	TotalRemaining string     `json:"total_remaining"`
	Breakdown      []GrantDTO `json:"breakdown"`
}

type DeductionLineDTO struct {
	FiscalYear int    `json:"fiscal_year"`
	Days       string `json:"days_deducted"`
}

type DeductionResponse struct {
	EmployeeID       string             `json:"employee_id"`
	FiscalYear       int                `json:"fiscal_year"`
	Requested        string             `json:"requested"`
	TotalDeducted    string             `json:"total_deducted"`
	DeductionsByYear []DeductionLineDTO `json:"deductions_by_year"`
}

func toDeductionResponse(res *leave.DeductionResult) DeductionResponse {
	lines := make([]DeductionLineDTO, 0, len(res.Lines))
	for _, l := range res.Lines {
		lines = append(lines, DeductionLineDTO{FiscalYear: l.FiscalYear, Days: l.Days.String()})
	}
	return DeductionResponse{
		EmployeeID:       string(res.EmployeeID),
		FiscalYear:       res.FiscalYear,
		Requested:        res.Requested.String(),
		TotalDeducted:    res.TotalDeducted.String(),
		DeductionsByYear: lines,
	}
}

type ExpiredGrantDTO struct {
	FiscalYear int    `json:"fiscal_year"`
	Forfeited  string `json:"forfeited_days"`
}

type CarryoverResponse struct {
	EmployeeID       string            `json:"employee_id"`
	FromYear         int               `json:"from_year"`
	ToYear           int               `json:"to_year"`
	SeniorityYears   string            `json:"seniority_years"`
	NewGrantDays     string            `json:"new_grant_days"`
	Expired          []ExpiredGrantDTO `json:"expired"`
	CarriedRemaining string            `json:"carried_remaining"`
	ForfeitedExcess  string            `json:"forfeited_excess"`
	AlreadyProcessed bool              `json:"already_processed"`
}

func toCarryoverResponse(res *leave.CarryoverResult) CarryoverResponse {
	expired := make([]ExpiredGrantDTO, 0, len(res.Expired))
	for _, e := range res.Expired {
		expired = append(expired, ExpiredGrantDTO{FiscalYear: e.FiscalYear, Forfeited: e.Forfeited.String()})
	}
	return CarryoverResponse{
		EmployeeID:       string(res.EmployeeID),
		FromYear:         res.FromYear,
		ToYear:           res.ToYear,
		SeniorityYears:   res.SeniorityYears.StringFixed(4),
		NewGrantDays:     res.NewGrantDays.String(),
		Expired:          expired,
		CarriedRemaining: res.CarriedRemaining.String(),
		ForfeitedExcess:  res.ForfeitedExcess.String(),
		AlreadyProcessed: res.AlreadyProcessed,
	}
}

type ComplianceRowDTO struct {
	EmployeeID string `json:"employee_id"`
	UsedDays   string `json:"used_days"`
	Compliant  bool   `json:"compliant"`
}

type ComplianceResponse struct {
	FiscalYear int                `json:"fiscal_year"`
	MinimumUse string             `json:"minimum_annual_use"`
	Results    []ComplianceRowDTO `json:"results"`
}

type RecommendationResponse struct {
	EmployeeID     string `json:"employee_id"`
	FiscalYear     int    `json:"fiscal_year"`
	SeniorityYears string `json:"seniority_years"`
	Days           string `json:"days"`
}

type ExpiringResponse struct {
	EmployeeID string     `json:"employee_id"`
	AsOf       string     `json:"as_of"`
	WithinDays int        `json:"within_days"`
	Grants     []GrantDTO `json:"grants"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
