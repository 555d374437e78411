package leave

import "time"

// =============================================================================
// AUDIT RECORDER - Fire-and-forget event sink
// =============================================================================

// EventKind distinguishes audit event payloads.
type EventKind string

const (
	EventDeduction EventKind = "deduction"
	EventCarryover EventKind = "carryover"
)

// AuditEvent is emitted after every successful mutating operation so a
// tamper-evident log can record it. Exactly one payload field is set,
// matching Kind.
type AuditEvent struct {
	Kind       EventKind
	EmployeeID EmployeeID
	OccurredAt time.Time
	Deduction  *DeductionResult
	Carryover  *CarryoverResult
}

// Recorder receives audit events. The engine only needs fire-and-forget
// recording, not a query interface; failures in the recorder must not
// affect the ledger operation that already committed.
type Recorder interface {
	Record(event AuditEvent)
}

// NopRecorder discards events. Used when auditing is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(AuditEvent) {}

func (e *Engine) recordDeduction(res *DeductionResult) {
	e.audit.Record(AuditEvent{
		Kind:       EventDeduction,
		EmployeeID: res.EmployeeID,
		OccurredAt: time.Now().UTC(),
		Deduction:  res,
	})
}

func (e *Engine) recordCarryover(res *CarryoverResult) {
	e.audit.Record(AuditEvent{
		Kind:       EventCarryover,
		EmployeeID: res.EmployeeID,
		OccurredAt: time.Now().UTC(),
		Carryover:  res,
	})
}
