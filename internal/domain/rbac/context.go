// Package rbac resolves what an actor may see. Visibility is tenant-scoped:
// center_head and faculty are fixed to their bound center, master sees every
// center and carries a session-scoped active one. The per-request Context
// built here is the only authorization state; there is no process-wide
// session singleton.
package rbac

import (
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrSessionNotFound - no session state exists for the actor.
	ErrSessionNotFound = shared.NewDomainError("rbac", "Session", shared.ErrNotFound, "session not found")

	// ErrNoActiveTenant - a master actor has not selected a center yet.
	ErrNoActiveTenant = shared.NewDomainError("rbac", "Context", shared.ErrInvalidState, "no active center selected")

	// ErrSwitchNotAllowed - only master may switch active center.
	ErrSwitchNotAllowed = shared.NewDomainError("rbac", "SwitchTenant", shared.ErrPermissionDenied, "only master may switch the active center")

	// ErrScopeViolation is deliberately a not-found error: out-of-scope
	// access must be indistinguishable from a missing resource, so a
	// tenant-bound actor can never probe other centers for existence.
	ErrScopeViolation = shared.NewDomainError("rbac", "Scope", shared.ErrNotFound, "resource not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

// Context is the per-request authorization view of one actor. Built by the
// Resolver at the start of every request and passed explicitly; never cached
// across requests.
type Context struct {
	ActorID shared.ActorID
	Role    directory.Role

	// BoundCenter is the fixed binding for center_head and faculty.
	// Empty for master.
	BoundCenter shared.TenantID

	// ActiveCenter is the center queries are scoped to: the session
	// selection for master, always equal to BoundCenter for bound roles.
	// May be empty for a master who has not switched yet.
	ActiveCenter shared.TenantID

	// FacultyID is the acting actor's faculty profile ID, when they have
	// one. The validator uses it to decide assignment ownership.
	FacultyID string
}

// IsMaster reports whether the actor holds the master role.
func (c *Context) IsMaster() bool { return c.Role == directory.RoleMaster }

// CanSee reports whether the actor may observe resources of the given
// center. For bound roles this is a fixed function of the profile binding;
// no session mutation can widen it.
func (c *Context) CanSee(tenantID shared.TenantID) bool {
	if c.IsMaster() {
		return true
	}
	return !c.BoundCenter.IsEmpty() && c.BoundCenter == tenantID
}

// RequireTenant checks visibility of one center. Out-of-scope access yields
// ErrScopeViolation, which reads as not-found to the caller.
func (c *Context) RequireTenant(tenantID shared.TenantID) error {
	if !c.CanSee(tenantID) {
		return ErrScopeViolation
	}
	return nil
}

// Scope returns the single center every list query must be filtered to.
// Masters must have switched to a center first.
func (c *Context) Scope() (shared.TenantID, error) {
	if c.ActiveCenter.IsEmpty() {
		return "", ErrNoActiveTenant
	}
	return c.ActiveCenter, nil
}

// OwnsAssignment reports whether the acting actor is the faculty member
// bound to the assignment.
func (c *Context) OwnsAssignment(a *directory.Assignment) bool {
	return c.FacultyID != "" && c.FacultyID == a.FacultyID
}
