// Package store provides the in-memory Repository implementation, used
// in tests and development. The SQLite-backed implementation lives in
// store/sqlite.
package store

import (
	"context"
	"sync"

	"github.com/kintai/leave-engine/leave"
)

// =============================================================================
// MEMORY REPOSITORY
// =============================================================================

// Memory keeps the full ledger in process memory and serializes
// mutations per employee, matching the engine's concurrency contract.
type Memory struct {
	mu     sync.Mutex // guards ledger and locks
	ledger *leave.Ledger
	locks  map[leave.EmployeeID]*sync.Mutex
}

var _ leave.Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		ledger: leave.NewLedger(),
		locks:  make(map[leave.EmployeeID]*sync.Mutex),
	}
}

func (m *Memory) AddEmployee(_ context.Context, id leave.EmployeeID, hireDate leave.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.AddEmployee(id, hireDate)
}

// WithEmployee runs fn against a single-employee copy under that
// employee's lock and merges the result back only if fn succeeds.
func (m *Memory) WithEmployee(_ context.Context, id leave.EmployeeID, fn func(l *leave.Ledger) error) error {
	lock := m.employeeLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	work, err := m.ledger.ExtractEmployee(id)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if err := fn(work); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.MergeEmployee(work, id)
}

func (m *Memory) ViewEmployee(_ context.Context, id leave.EmployeeID) (*leave.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.ExtractEmployee(id)
}

func (m *Memory) Snapshot(_ context.Context) (*leave.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Clone(), nil
}

func (m *Memory) Employees(_ context.Context) ([]leave.EmployeeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.EmployeeIDs(), nil
}

func (m *Memory) employeeLock(id leave.EmployeeID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locks[id]; !ok {
		m.locks[id] = &sync.Mutex{}
	}
	return m.locks[id]
}
