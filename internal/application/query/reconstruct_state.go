package query

import (
	"context"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONSTRUCT STATE QUERY
// Point-in-time entity reconstruction from the audit snapshot chain: the
// after-state of the latest entry at or before the requested instant. A
// chain lookup, not an aggregate replay.
// ══════════════════════════════════════════════════════════════════════════════

// ReconstructStateQuery contains the parameters for a reconstruction.
type ReconstructStateQuery struct {
	// Ctx is the resolved authorization context of the caller.
	Ctx *rbac.Context

	EntityType string
	EntityID   string

	// At is the instant to reconstruct; defaults to now.
	At time.Time
}

// Validate checks and normalizes the query.
func (q *ReconstructStateQuery) Validate() error {
	if q.Ctx == nil {
		return shared.NewDomainError("query", "ReconstructState", shared.ErrUnauthorized, "missing authorization context")
	}
	if q.EntityType == "" || q.EntityID == "" {
		return shared.NewDomainError("query", "ReconstructState", shared.ErrEmptyValue, "entity type and ID are required")
	}
	return nil
}

// ReconstructStateResult contains the reconstructed snapshot.
type ReconstructStateResult struct {
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	At         time.Time   `json:"at"`
	State      audit.State `json:"state"`
}

// ReconstructStateHandler handles reconstruction queries.
type ReconstructStateHandler struct {
	reader audit.Reader

	now func() time.Time
}

// NewReconstructStateHandler creates a new handler.
func NewReconstructStateHandler(reader audit.Reader) *ReconstructStateHandler {
	return &ReconstructStateHandler{
		reader: reader,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *ReconstructStateHandler) WithClock(now func() time.Time) *ReconstructStateHandler {
	h.now = now
	return h
}

// Handle executes the query. Compliance is a management concern: faculty
// cannot reconstruct anything. Masters get the global chain lookup; a
// center head reads through their tenant-scoped audit listing, so entities
// of other centers come back as not found.
func (h *ReconstructStateHandler) Handle(ctx context.Context, query ReconstructStateQuery) (*ReconstructStateResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.Ctx.Role == directory.RoleFaculty {
		return nil, shared.NewDomainError("query", "ReconstructState", shared.ErrPermissionDenied, "faculty may not reconstruct entity state")
	}

	at := query.At
	if at.IsZero() {
		at = h.now()
	}

	var (
		state audit.State
		err   error
	)
	if query.Ctx.IsMaster() {
		state, err = h.reader.StateAt(ctx, query.EntityType, query.EntityID, at)
	} else {
		state, err = h.scopedStateAt(ctx, query, at)
	}
	if err != nil {
		return nil, err
	}

	return &ReconstructStateResult{
		EntityType: query.EntityType,
		EntityID:   query.EntityID,
		At:         at,
		State:      state,
	}, nil
}

func (h *ReconstructStateHandler) scopedStateAt(ctx context.Context, query ReconstructStateQuery, at time.Time) (audit.State, error) {
	scope, err := query.Ctx.Scope()
	if err != nil {
		return nil, err
	}

	entries, err := h.reader.List(ctx, scope, audit.Filter{
		EntityType: query.EntityType,
		EntityID:   query.EntityID,
		Actions:    []audit.Action{audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete},
		To:         at,
	}, shared.ListOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, audit.ErrNoStateBefore
	}
	return entries[0].After, nil
}
