/*
Package sqlite provides the SQLite-backed Repository and audit log.

PURPOSE:
  Persists per-employee ledger state (employees and yearly grants) and
  the append-only audit event log. The same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  employees:      Identity and hire date (the only field the engine reads)
  grants:         One row per employee per fiscal year; granted and used
                  days are stored, remaining is always recomputed
  audit_events:   Append-only record of deduction/carry-over results
  carryover_runs: Scheduler bookkeeping for year-end processing

CONCURRENCY:
  WithEmployee takes a per-employee mutex and a write transaction,
  giving the engine the balance-check-and-deduct atomicity its contract
  requires. Different employees proceed in parallel.

WAL MODE:
  The database is opened with WAL so readers don't block the single
  writer and crash recovery is cheap.

USAGE:
  repo, err := sqlite.Open("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer repo.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/kintai/leave-engine/leave"
)

// Store implements leave.Repository and leave.Recorder over SQLite.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex // guards locks
	locks map[leave.EmployeeID]*sync.Mutex
}

var (
	_ leave.Repository = (*Store)(nil)
	_ leave.Recorder   = (*Store)(nil)
)

// Open creates a store at the given path. Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	if dbPath == ":memory:" {
		// A plain :memory: database is per-connection, so every pooled
		// connection would see its own empty database. A uniquely named
		// shared-cache database gives the whole pool one database per
		// store.
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on&_busy_timeout=5000", uuid.NewString())
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, locks: make(map[leave.EmployeeID]*sync.Mutex)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- One grant per employee per fiscal year. Remaining days are never
	-- stored: they are recomputed from granted - used on load.
	CREATE TABLE IF NOT EXISTS grants (
		employee_id TEXT NOT NULL REFERENCES employees(id),
		fiscal_year INTEGER NOT NULL,
		granted TEXT NOT NULL,
		used TEXT NOT NULL,
		grant_date TEXT NOT NULL,
		expiration_date TEXT NOT NULL,
		state TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, fiscal_year)
	);

	CREATE INDEX IF NOT EXISTS idx_grants_employee
		ON grants(employee_id, fiscal_year DESC);

	-- Append-only audit log of engine results.
	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_employee
		ON audit_events(employee_id, created_at);

	-- Scheduler bookkeeping for year-end carry-over runs.
	CREATE TABLE IF NOT EXISTS carryover_runs (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		from_year INTEGER NOT NULL,
		to_year INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		new_grant_days TEXT,
		forfeited_excess TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_carryover_runs_key
		ON carryover_runs(employee_id, from_year, to_year);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPOSITORY
// =============================================================================

func (s *Store) AddEmployee(ctx context.Context, id leave.EmployeeID, hireDate leave.Date) error {
	if id == "" {
		return fmt.Errorf("%w: empty employee id", leave.ErrInvalidArgument)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO employees (id, hire_date, created_at) VALUES (?, ?, ?)`,
		string(id), hireDate.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: employee %s: %v", leave.ErrInvalidArgument, id, err)
	}
	return nil
}

// WithEmployee loads the employee's ledger inside a transaction, runs
// fn, and rewrites the employee's grant rows if fn succeeds. The
// per-employee mutex serializes concurrent callers.
func (s *Store) WithEmployee(ctx context.Context, id leave.EmployeeID, fn func(l *leave.Ledger) error) error {
	lock := s.employeeLock(id)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ledger, err := loadEmployee(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := fn(ledger); err != nil {
		return err
	}

	if err := saveGrants(ctx, tx, id, ledger); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ViewEmployee(ctx context.Context, id leave.EmployeeID) (*leave.Ledger, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return loadEmployee(ctx, tx, id)
}

func (s *Store) Snapshot(ctx context.Context) (*leave.Ledger, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ids, err := employeeIDs(ctx, tx)
	if err != nil {
		return nil, err
	}

	ledger := leave.NewLedger()
	for _, id := range ids {
		if err := loadEmployeeInto(ctx, tx, id, ledger); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

func (s *Store) Employees(ctx context.Context) ([]leave.EmployeeID, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	return employeeIDs(ctx, tx)
}

func employeeIDs(ctx context.Context, tx *sql.Tx) ([]leave.EmployeeID, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []leave.EmployeeID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, leave.EmployeeID(id))
	}
	return ids, rows.Err()
}

func loadEmployee(ctx context.Context, tx *sql.Tx, id leave.EmployeeID) (*leave.Ledger, error) {
	ledger := leave.NewLedger()
	if err := loadEmployeeInto(ctx, tx, id, ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

func loadEmployeeInto(ctx context.Context, tx *sql.Tx, id leave.EmployeeID, ledger *leave.Ledger) error {
	var hireDateStr string
	err := tx.QueryRowContext(ctx,
		`SELECT hire_date FROM employees WHERE id = ?`, string(id)).Scan(&hireDateStr)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", leave.ErrEmployeeNotFound, id)
	}
	if err != nil {
		return err
	}
	hireDate, err := leave.ParseDate(hireDateStr)
	if err != nil {
		return fmt.Errorf("corrupt hire_date for %s: %w", id, err)
	}

	if err := ledger.AddEmployee(id, hireDate); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT fiscal_year, granted, used, grant_date, expiration_date, state
		FROM grants WHERE employee_id = ? ORDER BY fiscal_year`, string(id))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fy                       int
			granted, used            string
			grantDateStr, expDateStr string
			state                    string
		)
		if err := rows.Scan(&fy, &granted, &used, &grantDateStr, &expDateStr, &state); err != nil {
			return err
		}
		grant, err := scanGrant(fy, granted, used, grantDateStr, expDateStr, state)
		if err != nil {
			return fmt.Errorf("corrupt grant row for %s fiscal year %d: %w", id, fy, err)
		}
		if err := ledger.AddGrant(id, grant); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanGrant(fy int, granted, used, grantDateStr, expDateStr, state string) (leave.YearlyGrant, error) {
	grantedDays, err := decimal.NewFromString(granted)
	if err != nil {
		return leave.YearlyGrant{}, err
	}
	usedDays, err := decimal.NewFromString(used)
	if err != nil {
		return leave.YearlyGrant{}, err
	}
	grantDate, err := leave.ParseDate(grantDateStr)
	if err != nil {
		return leave.YearlyGrant{}, err
	}
	expDate, err := leave.ParseDate(expDateStr)
	if err != nil {
		return leave.YearlyGrant{}, err
	}
	return leave.YearlyGrant{
		FiscalYear:     fy,
		Granted:        grantedDays,
		Used:           usedDays,
		GrantDate:      grantDate,
		ExpirationDate: expDate,
		State:          leave.GrantState(state),
	}, nil
}

// saveGrants rewrites the employee's grant rows from the ledger.
// Expired grants are written back too: expiration is a state, not
// removal, and the rows are the retention history.
func saveGrants(ctx context.Context, tx *sql.Tx, id leave.EmployeeID, ledger *leave.Ledger) error {
	grants, err := ledger.Grants(id)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, g := range grants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO grants (employee_id, fiscal_year, granted, used, grant_date, expiration_date, state, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (employee_id, fiscal_year) DO UPDATE SET
				granted = excluded.granted,
				used = excluded.used,
				grant_date = excluded.grant_date,
				expiration_date = excluded.expiration_date,
				state = excluded.state,
				updated_at = excluded.updated_at`,
			string(id), g.FiscalYear, g.Granted.String(), g.Used.String(),
			g.GrantDate.String(), g.ExpirationDate.String(), string(g.State), now)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) employeeLock(id leave.EmployeeID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[id]; !ok {
		s.locks[id] = &sync.Mutex{}
	}
	return s.locks[id]
}

// =============================================================================
// AUDIT RECORDER
// =============================================================================

// AuditErrorHook, when set, receives audit persistence failures.
// Recording is fire-and-forget by contract: a storage failure must not
// affect the ledger operation that already committed.
var AuditErrorHook func(error)

// Record appends an engine audit event.
func (s *Store) Record(event leave.AuditEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		reportAuditError(err)
		return
	}
	_, err = s.db.Exec(
		`INSERT INTO audit_events (id, kind, employee_id, payload_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), string(event.Kind), string(event.EmployeeID),
		string(payload), event.OccurredAt.Format(time.RFC3339))
	if err != nil {
		reportAuditError(err)
	}
}

func reportAuditError(err error) {
	if AuditErrorHook != nil {
		AuditErrorHook(err)
	}
}

// AuditEventCount returns the number of recorded events for an
// employee. Used by tests and admin reporting.
func (s *Store) AuditEventCount(ctx context.Context, id leave.EmployeeID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_events WHERE employee_id = ?`, string(id)).Scan(&n)
	return n, err
}

// =============================================================================
// CARRYOVER RUN BOOKKEEPING - Used by the scheduler
// =============================================================================

// CarryoverRun records one year-end processing attempt.
type CarryoverRun struct {
	ID              string
	EmployeeID      leave.EmployeeID
	FromYear        int
	ToYear          int
	Status          string // "running", "completed", "failed", "skipped"
	Error           string
	NewGrantDays    string
	ForfeitedExcess string
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// SaveCarryoverRun inserts or updates a run record.
func (s *Store) SaveCarryoverRun(ctx context.Context, run CarryoverRun) error {
	var completed any
	if run.CompletedAt != nil {
		completed = run.CompletedAt.Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carryover_runs (id, employee_id, from_year, to_year, status, error, new_grant_days, forfeited_excess, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			new_grant_days = excluded.new_grant_days,
			forfeited_excess = excluded.forfeited_excess,
			completed_at = excluded.completed_at`,
		run.ID, string(run.EmployeeID), run.FromYear, run.ToYear, run.Status, run.Error,
		run.NewGrantDays, run.ForfeitedExcess, run.StartedAt.Format(time.RFC3339), completed)
	return err
}

// IsCarryoverComplete reports whether a completed run exists for the
// (employee, fromYear, toYear) key.
func (s *Store) IsCarryoverComplete(ctx context.Context, id leave.EmployeeID, fromYear, toYear int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM carryover_runs
		WHERE employee_id = ? AND from_year = ? AND to_year = ? AND status IN ('completed', 'skipped')`,
		string(id), fromYear, toYear).Scan(&n)
	return n > 0, err
}
