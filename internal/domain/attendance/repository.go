package attendance

import (
	"context"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT STORE INTERFACE
// The ledger contract. Append-only: there is deliberately no Update or
// Delete here, and implementations must not add one. Implementations live in
// infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Filter narrows ledger reads.
type Filter struct {
	// From/To bound the date range, inclusive on both ends. Zero values
	// leave that end open.
	From shared.Day
	To   shared.Day

	// AssignmentID narrows to one assignment when non-empty.
	AssignmentID shared.AssignmentID

	// StudentID narrows to one student when non-empty.
	StudentID string

	// FacultyID narrows to one faculty member when non-empty.
	FacultyID string

	// Statuses narrows to the given statuses when non-empty.
	Statuses []Status
}

// EventStore defines the ledger storage contract.
type EventStore interface {
	// Append persists a new event. The only write operation.
	Append(ctx context.Context, event *Event) error

	// GetByID returns one event.
	// Returns ErrEventNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Event, error)

	// ListByCenter returns events of one center matching the filter,
	// newest date first.
	ListByCenter(ctx context.Context, centerID shared.TenantID, filter Filter, opts shared.ListOptions) ([]*Event, error)

	// HasOverlap reports whether a present-status event on the same
	// assignment and date intersects the [in, out) range. Used inside the
	// write transaction to reject conflicting sessions.
	HasOverlap(ctx context.Context, assignmentID shared.AssignmentID, date shared.Day, in, out shared.ClockTime) (bool, error)

	// LastEventDays returns the most recent event date per assignment for
	// one center. Assignments with no events are absent from the map.
	LastEventDays(ctx context.Context, centerID shared.TenantID) (map[shared.AssignmentID]shared.Day, error)

	// CoveredTopicCounts returns the number of distinct topics recorded
	// per assignment for one center.
	CoveredTopicCounts(ctx context.Context, centerID shared.TenantID) (map[shared.AssignmentID]int, error)
}
