package rbac

import (
	"context"
	"errors"

	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION STORE INTERFACE
// Holds the master's active-center selection, per actor. Implemented over
// Redis in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// SessionStore keeps per-actor session state.
type SessionStore interface {
	// SetActiveTenant records the actor's active center selection.
	SetActiveTenant(ctx context.Context, actorID shared.ActorID, tenantID shared.TenantID) error

	// GetActiveTenant returns the actor's active center.
	// Returns ErrSessionNotFound when nothing is selected.
	GetActiveTenant(ctx context.Context, actorID shared.ActorID) (shared.TenantID, error)

	// Clear drops the actor's session state, for logout.
	Clear(ctx context.Context, actorID shared.ActorID) error
}

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVER
// ══════════════════════════════════════════════════════════════════════════════

// Resolver builds the per-request Context for an actor.
type Resolver struct {
	actors   directory.ActorRepository
	faculty  directory.FacultyRepository
	sessions SessionStore
}

// NewResolver creates a context resolver.
func NewResolver(actors directory.ActorRepository, faculty directory.FacultyRepository, sessions SessionStore) *Resolver {
	return &Resolver{actors: actors, faculty: faculty, sessions: sessions}
}

// Resolve loads the actor and constructs their authorization context.
// For bound roles the scope comes from the profile binding and the session
// store is never consulted, so no session mutation can widen visibility.
// For master the active center comes from the session; an empty session
// leaves ActiveCenter unset until the first switch.
func (r *Resolver) Resolve(ctx context.Context, actorID shared.ActorID) (*Context, error) {
	actor, err := r.actors.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	rc := &Context{
		ActorID:     actor.ID,
		Role:        actor.Role,
		BoundCenter: actor.CenterID,
	}

	if actor.Role == directory.RoleMaster {
		active, err := r.sessions.GetActiveTenant(ctx, actor.ID)
		switch {
		case err == nil:
			rc.ActiveCenter = active
		case errors.Is(err, shared.ErrNotFound):
			// No selection yet; scoped queries will demand one.
		default:
			return nil, err
		}
	} else {
		rc.ActiveCenter = actor.CenterID
	}

	if actor.Role == directory.RoleFaculty {
		profile, err := r.faculty.GetByActorID(ctx, actor.ID)
		switch {
		case err == nil:
			rc.FacultyID = profile.ID
		case errors.Is(err, shared.ErrNotFound):
			// Faculty actor without a profile records nothing anyway.
		default:
			return nil, err
		}
	}

	return rc, nil
}
