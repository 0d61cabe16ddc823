package audit

import (
	"context"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Recording and reading are split: Recorder runs inside write transactions,
// Reader serves compliance and reconstruction queries. A Recorder failure
// must fail the enclosing transaction; no domain write may commit without
// its audit counterpart.
// ══════════════════════════════════════════════════════════════════════════════

// Recorder persists audit entries. Append-only.
type Recorder interface {
	// Record persists one entry. Implementations wrap any storage error
	// in shared.ErrAuditWrite so callers abort the transaction.
	Record(ctx context.Context, entry *Entry) error
}

// Filter narrows audit reads.
type Filter struct {
	// EntityType/EntityID narrow to one entity's chain when non-empty.
	EntityType string
	EntityID   string

	// ActorID narrows to one actor's entries when non-empty.
	ActorID shared.ActorID

	// Actions narrows to the given actions when non-empty.
	Actions []Action

	// From/To bound the timestamp range. Zero values leave that end open.
	From time.Time
	To   time.Time
}

// Reader serves audit queries.
type Reader interface {
	// List returns entries matching the filter, newest first, scoped to
	// one center. A zero tenantID reads the cross-tenant entries.
	List(ctx context.Context, tenantID shared.TenantID, filter Filter, opts shared.ListOptions) ([]*Entry, error)

	// StateAt returns the after-state of the latest entry for the entity
	// with timestamp <= t. A snapshot-chain lookup, not an aggregate
	// replay. Returns ErrNoStateBefore when the chain is empty at t.
	StateAt(ctx context.Context, entityType, entityID string, t time.Time) (State, error)

	// CountForEntity returns how many entries an entity's chain holds.
	CountForEntity(ctx context.Context, entityType, entityID string) (int, error)
}
