/*
handlers.go - HTTP API handlers for the leave balance engine

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates all business rules to the engine.
  Handlers never mutate a ledger directly: every write goes through
  Repository.WithEmployee so balance-check-and-deduct stays atomic per
  employee.

ENDPOINTS:
  Employees:
    GET    /api/employees                       List all employees
    POST   /api/employees                       Register employee
    GET    /api/employees/{id}/balance          Balance breakdown (LIFO order)
    GET    /api/employees/{id}/recommendation   Entitlement preview
    GET    /api/employees/{id}/expiring         Grants expiring soon

  Mutations:
    POST   /api/employees/{id}/grants           Issue the initial grant
    POST   /api/employees/{id}/deductions       Deduct leave days
    POST   /api/employees/{id}/carryover        Year-end carry-over

  Reporting:
    GET    /api/compliance/{year}               Minimum-usage report

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee not found
  - 409: Insufficient balance, duplicate registration
  - 500: Integrity violations, storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Automated carry-over runs
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kintai/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the dependencies every endpoint needs.
type Handler struct {
	Repo   leave.Repository
	Engine *leave.Engine
	Log    *zap.Logger
}

func NewHandler(repo leave.Repository, engine *leave.Engine, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Repo: repo, Engine: engine, Log: log}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// CreateEmployee registers an employee and, when asked, issues the first
// grant in the same call.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.ID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}
	hireDate, err := leave.ParseDate(req.HireDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid hire_date: %w", err))
		return
	}

	id := leave.EmployeeID(req.ID)
	if err := h.Repo.AddEmployee(r.Context(), id, hireDate); err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := EmployeeResponse{ID: req.ID, HireDate: hireDate.String()}

	if req.IssueInitialGrant {
		asOf := leave.Today()
		if req.AsOf != "" {
			if asOf, err = leave.ParseDate(req.AsOf); err != nil {
				h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid as_of: %w", err))
				return
			}
		}
		var grant *leave.YearlyGrant
		err := h.Repo.WithEmployee(r.Context(), id, func(l *leave.Ledger) error {
			var inner error
			grant, inner = h.Engine.IssueInitialGrant(l, id, asOf)
			return inner
		})
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		dto := toGrantDTO(*grant)
		resp.InitialGrant = &dto
	}

	h.Log.Info("employee registered",
		zap.String("employee_id", req.ID),
		zap.String("hire_date", hireDate.String()),
		zap.Bool("initial_grant", resp.InitialGrant != nil))
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Repo.Employees(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"employees": out})
}

// GetBalance returns the employee's balance breakdown, newest grant
// first. An as_of_year query restricts the view to grants eligible for
// deduction in that fiscal year.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	asOfYear := 0
	if raw := r.URL.Query().Get("as_of_year"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid as_of_year %q", raw))
			return
		}
		asOfYear = n
	}

	ledger, err := h.Repo.ViewEmployee(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	breakdown, err := ledger.BalanceBreakdown(id, asOfYear)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	total, err := ledger.TotalRemaining(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, BalanceResponse{
		EmployeeID:     string(id),
		AsOfYear:       asOfYear,
		TotalRemaining: total.String(),
		Breakdown:      toGrantDTOs(breakdown),
	})
}

// GetRecommendation previews the grant the engine would issue at as_of
// (default today) without touching the ledger.
func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	asOf := leave.Today()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		var err error
		if asOf, err = leave.ParseDate(raw); err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid as_of: %w", err))
			return
		}
	}

	ledger, err := h.Repo.ViewEmployee(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	rec, err := h.Engine.Recommendation(ledger, id, asOf)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, RecommendationResponse{
		EmployeeID:     string(rec.EmployeeID),
		FiscalYear:     rec.FiscalYear,
		SeniorityYears: rec.SeniorityYears.StringFixed(4),
		Days:           rec.Days.String(),
	})
}

// GetExpiring lists grants that still hold days and expire within
// within_days of as_of (default today, 60 days).
func (h *Handler) GetExpiring(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	asOf := leave.Today()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		var err error
		if asOf, err = leave.ParseDate(raw); err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid as_of: %w", err))
			return
		}
	}
	withinDays := 60
	if raw := r.URL.Query().Get("within_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid within_days %q", raw))
			return
		}
		withinDays = n
	}

	ledger, err := h.Repo.ViewEmployee(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	grants, err := h.Engine.CheckExpiringSoon(ledger, id, asOf, withinDays)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ExpiringResponse{
		EmployeeID: string(id),
		AsOf:       asOf.String(),
		WithinDays: withinDays,
		Grants:     toGrantDTOs(grants),
	})
}

// =============================================================================
// MUTATIONS
// =============================================================================

// IssueGrant creates the employee's first grant from the current
// entitlement. Later grants come from carry-over processing.
func (h *Handler) IssueGrant(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	asOf := leave.Today()
	var req struct {
		AsOf string `json:"as_of,omitempty"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}
	if req.AsOf != "" {
		var err error
		if asOf, err = leave.ParseDate(req.AsOf); err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid as_of: %w", err))
			return
		}
	}

	var grant *leave.YearlyGrant
	err := h.Repo.WithEmployee(r.Context(), id, func(l *leave.Ledger) error {
		var inner error
		grant, inner = h.Engine.IssueInitialGrant(l, id, asOf)
		return inner
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.Log.Info("initial grant issued",
		zap.String("employee_id", string(id)),
		zap.Int("fiscal_year", grant.FiscalYear),
		zap.String("days", grant.Granted.String()))
	h.writeJSON(w, http.StatusCreated, toGrantDTO(*grant))
}

// SubmitDeduction deducts leave days LIFO across the employee's
// eligible grants. All-or-nothing: a shortfall rejects the whole
// request and leaves the ledger untouched.
func (h *Handler) SubmitDeduction(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	var req DeductionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	days, err := decimal.NewFromString(req.Days)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid days %q", req.Days))
		return
	}

	var result *leave.DeductionResult
	err = h.Repo.WithEmployee(r.Context(), id, func(l *leave.Ledger) error {
		var inner error
		result, inner = h.Engine.ApplyDeduction(l, id, days, req.FiscalYear)
		return inner
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.Log.Info("deduction applied",
		zap.String("employee_id", string(id)),
		zap.Int("fiscal_year", req.FiscalYear),
		zap.String("days", days.String()))
	h.writeJSON(w, http.StatusOK, toDeductionResponse(result))
}

// TriggerCarryover runs year-end processing for one employee. The
// operation is idempotent: a repeat run reports already_processed and
// changes nothing.
func (h *Handler) TriggerCarryover(w http.ResponseWriter, r *http.Request) {
	id := leave.EmployeeID(chi.URLParam(r, "id"))

	var req CarryoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	var result *leave.CarryoverResult
	err := h.Repo.WithEmployee(r.Context(), id, func(l *leave.Ledger) error {
		var inner error
		result, inner = h.Engine.ProcessYearEndCarryover(l, id, req.FromYear, req.ToYear)
		return inner
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.Log.Info("carry-over processed",
		zap.String("employee_id", string(id)),
		zap.Int("from_year", req.FromYear),
		zap.Int("to_year", req.ToYear),
		zap.Bool("already_processed", result.AlreadyProcessed))
	h.writeJSON(w, http.StatusOK, toCarryoverResponse(result))
}

// =============================================================================
// REPORTING
// =============================================================================

// ComplianceReport evaluates the minimum annual-usage rule for every
// employee holding the given fiscal year's grant.
func (h *Handler) ComplianceReport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year <= 0 {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid fiscal year %q", chi.URLParam(r, "year")))
		return
	}

	ledger, err := h.Repo.Snapshot(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	statuses := h.Engine.CheckFiveDayCompliance(ledger, year)
	rows := make([]ComplianceRowDTO, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, ComplianceRowDTO{
			EmployeeID: string(s.EmployeeID),
			UsedDays:   s.UsedDays.String(),
			Compliant:  s.Compliant,
		})
	}

	h.writeJSON(w, http.StatusOK, ComplianceResponse{
		FiscalYear: year,
		MinimumUse: h.Engine.Config().MinimumAnnualUse.String(),
		Results:    rows,
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// writeDomainError maps engine errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leave.ErrEmployeeNotFound):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, leave.ErrInsufficientBalance):
		h.writeError(w, http.StatusConflict, err)
	case leave.IsClientError(err):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.Log.Error("internal error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err)
	}
}
