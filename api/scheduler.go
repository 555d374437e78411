/*
scheduler.go - Automated year-end carry-over scheduler

PURPOSE:
  Periodically detects fiscal-year boundaries that have passed and runs
  carry-over processing for every employee that has not been processed
  yet. Carry-over in the engine is idempotent, so a crash between
  employees is safe: the next tick picks up where the last one stopped.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Determines the previous fiscal year from the engine's calendar
  - Skips employees whose run record is already completed
  - Records carry-over runs for audit and admin display

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewCarryoverScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerCarryover endpoint (manual processing)
  - store/sqlite: run bookkeeping
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kintai/leave-engine/leave"
	"github.com/kintai/leave-engine/store/sqlite"
)

// CarryoverScheduler handles automated year-end processing.
type CarryoverScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	Log           *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// now is swappable for tests.
	now func() leave.Date
}

// NewCarryoverScheduler creates a new scheduler.
func NewCarryoverScheduler(store *sqlite.Store, handler *Handler, log *zap.Logger) *CarryoverScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CarryoverScheduler{
		Store:         store,
		Handler:       handler,
		Log:           log,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
		now:           leave.Today,
	}
}

// Start begins the scheduler.
func (cs *CarryoverScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.Log.Info("carry-over scheduler disabled, not starting")
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.wg.Add(1)
	go cs.run()

	cs.Log.Info("carry-over scheduler started", zap.Duration("check_interval", cs.CheckInterval))
}

// Stop stops the scheduler.
func (cs *CarryoverScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.Log.Info("carry-over scheduler stopped")
	}
}

func (cs *CarryoverScheduler) run() {
	defer cs.wg.Done()

	// Run immediately on start
	cs.checkAndProcess()

	for {
		select {
		case <-cs.ticker.C:
			cs.checkAndProcess()
		case <-cs.stop:
			return
		}
	}
}

func (cs *CarryoverScheduler) checkAndProcess() {
	ctx := context.Background()
	today := cs.now()

	calendar := cs.Handler.Engine.Calendar()
	toYear := calendar.FiscalYearOf(today)
	fromYear := toYear - 1
	if fromYear <= 0 {
		return
	}

	employees, err := cs.Handler.Repo.Employees(ctx)
	if err != nil {
		cs.Log.Error("scheduler failed to list employees", zap.Error(err))
		return
	}

	processed := 0
	skipped := 0
	for _, id := range employees {
		done, err := cs.Store.IsCarryoverComplete(ctx, id, fromYear, toYear)
		if err != nil {
			cs.Log.Error("scheduler failed to check run status",
				zap.String("employee_id", string(id)), zap.Error(err))
			continue
		}
		if done {
			skipped++
			continue
		}

		if err := cs.processEmployee(ctx, id, fromYear, toYear); err != nil {
			cs.Log.Error("scheduler carry-over failed",
				zap.String("employee_id", string(id)),
				zap.Int("from_year", fromYear),
				zap.Int("to_year", toYear),
				zap.Error(err))
		} else {
			processed++
		}
	}

	if processed > 0 || skipped > 0 {
		cs.Log.Info("carry-over sweep completed",
			zap.Int("from_year", fromYear),
			zap.Int("to_year", toYear),
			zap.Int("processed", processed),
			zap.Int("skipped", skipped))
	}
}

func (cs *CarryoverScheduler) processEmployee(ctx context.Context, id leave.EmployeeID, fromYear, toYear int) error {
	started := time.Now().UTC()
	run := sqlite.CarryoverRun{
		ID:         uuid.NewString(),
		EmployeeID: id,
		FromYear:   fromYear,
		ToYear:     toYear,
		Status:     "running",
		StartedAt:  started,
	}
	if err := cs.Store.SaveCarryoverRun(ctx, run); err != nil {
		return err
	}

	var result *leave.CarryoverResult
	err := cs.Handler.Repo.WithEmployee(ctx, id, func(l *leave.Ledger) error {
		var inner error
		result, inner = cs.Handler.Engine.ProcessYearEndCarryover(l, id, fromYear, toYear)
		return inner
	})

	completed := time.Now().UTC()
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		run.CompletedAt = &completed
		cs.Store.SaveCarryoverRun(ctx, run)
		return err
	}

	if result.AlreadyProcessed {
		run.Status = "skipped"
	} else {
		run.Status = "completed"
	}
	run.NewGrantDays = result.NewGrantDays.String()
	run.ForfeitedExcess = result.ForfeitedExcess.String()
	run.CompletedAt = &completed
	if err := cs.Store.SaveCarryoverRun(ctx, run); err != nil {
		return err
	}

	cs.Log.Info("carry-over processed",
		zap.String("employee_id", string(id)),
		zap.Int("to_year", toYear),
		zap.String("new_grant_days", result.NewGrantDays.String()),
		zap.Int("expired_grants", len(result.Expired)),
		zap.Bool("already_processed", result.AlreadyProcessed))
	return nil
}

// RunNow triggers an immediate sweep (for testing/admin).
func (cs *CarryoverScheduler) RunNow() {
	cs.checkAndProcess()
}
