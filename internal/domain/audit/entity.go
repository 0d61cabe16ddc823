// Package audit contains the append-only audit trail: one entry per entity
// mutation, captured in the same transaction as the mutation itself. Entries
// are immutable and retained indefinitely; the snapshot chain they form
// supports point-in-time state reconstruction.
package audit

import (
	"strings"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Action classifies what the actor did.
type Action string

const (
	// ActionCreate - a new entity was persisted.
	ActionCreate Action = "CREATE"
	// ActionUpdate - an existing entity changed.
	ActionUpdate Action = "UPDATE"
	// ActionDelete - an entity was archived (soft delete).
	ActionDelete Action = "DELETE"
	// ActionLogin - an actor authenticated.
	ActionLogin Action = "LOGIN"
	// ActionLogout - an actor ended their session.
	ActionLogout Action = "LOGOUT"
	// ActionAccess - an actor crossed a visibility boundary, such as the
	// master switching active center.
	ActionAccess Action = "ACCESS"
)

// IsValid checks that the action is one of the known actions.
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout, ActionAccess:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action.
func (a Action) String() string { return string(a) }

// IsMutation reports whether the action changed entity state. Mutations
// must carry an after-state snapshot.
func (a Action) IsMutation() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

// State is an entity snapshot, serialized as JSON at rest.
type State map[string]interface{}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEntryNotFound - no audit entry matches.
	ErrEntryNotFound = shared.NewDomainError("audit", "Entry", shared.ErrNotFound, "audit entry not found")

	// ErrNoStateBefore - the snapshot chain has no entry at or before the
	// requested instant.
	ErrNoStateBefore = shared.NewDomainError("audit", "StateAt", shared.ErrNotFound, "no recorded state at or before the requested time")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry is one audit row. Immutable after creation.
type Entry struct {
	ID      string
	ActorID shared.ActorID
	Action  Action

	EntityType string
	EntityID   string

	// TenantID scopes the entry to a center where the entity has one.
	// Empty for cross-tenant entities such as actors and subjects.
	TenantID shared.TenantID

	// Before is nil for CREATE and the non-mutating actions.
	Before State
	// After is the snapshot the reconstruction chain reads. Required for
	// mutations; nil otherwise.
	After State

	Reason    string
	Timestamp time.Time
	IP        string
}

// NewEntryParams carries the parameters for creating an audit entry.
type NewEntryParams struct {
	ID         string
	ActorID    shared.ActorID
	Action     Action
	EntityType string
	EntityID   string
	TenantID   shared.TenantID
	Before     State
	After      State
	Reason     string
	Timestamp  time.Time
	IP         string
}

// NewEntry creates an audit entry with validation.
func NewEntry(params NewEntryParams) (*Entry, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("audit", "NewEntry", shared.ErrInvalidID, "entry ID is required")
	}
	if !params.ActorID.IsValid() {
		return nil, shared.NewDomainError("audit", "NewEntry", shared.ErrInvalidID, "invalid actor ID")
	}
	if !params.Action.IsValid() {
		return nil, shared.NewDomainError("audit", "NewEntry", shared.ErrValidation, "unknown audit action")
	}
	entityType := strings.TrimSpace(params.EntityType)
	if entityType == "" || params.EntityID == "" {
		return nil, shared.NewDomainError("audit", "NewEntry", shared.ErrEmptyValue, "entity type and ID are required")
	}
	if params.Action.IsMutation() && params.After == nil {
		return nil, shared.NewDomainError("audit", "NewEntry", shared.ErrValidation, "mutations require an after state")
	}
	if params.Timestamp.IsZero() {
		return nil, shared.NewDomainError("audit", "NewEntry", shared.ErrEmptyValue, "timestamp is required")
	}

	return &Entry{
		ID:         params.ID,
		ActorID:    params.ActorID,
		Action:     params.Action,
		EntityType: entityType,
		EntityID:   params.EntityID,
		TenantID:   params.TenantID,
		Before:     params.Before,
		After:      params.After,
		Reason:     strings.TrimSpace(params.Reason),
		Timestamp:  params.Timestamp,
		IP:         params.IP,
	}, nil
}
