// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import "time"

// Provenance carries the server-assigned creation and modification stamps
// that every domain entity must have. Callers never set these fields
// directly; repositories and the unit-of-work stamp them on write.
type Provenance struct {
	CreatedAt  time.Time
	CreatedBy  ActorID
	ModifiedAt time.Time
	ModifiedBy ActorID
}

// StampCreated records the creating actor and time. Both modification
// fields start equal to the creation fields.
func (p *Provenance) StampCreated(by ActorID, at time.Time) {
	p.CreatedAt = at
	p.CreatedBy = by
	p.ModifiedAt = at
	p.ModifiedBy = by
}

// StampModified records a modification.
func (p *Provenance) StampModified(by ActorID, at time.Time) {
	p.ModifiedAt = at
	p.ModifiedBy = by
}

// SoftDelete carries the soft-deletion state. Deletion is monotonic: once an
// entity is archived there is no reversal path, and no interface exposes a
// hard delete. Default retrieval excludes archived rows; compliance tooling
// opts in with an include-deleted list option.
type SoftDelete struct {
	IsDeleted bool
	DeletedAt *time.Time
	DeletedBy *ActorID
}

// Archive marks the entity deleted. Archiving an already-archived entity is
// an error so that the monotonic transition stays visible in the audit trail
// exactly once.
func (d *SoftDelete) Archive(by ActorID, at time.Time) error {
	if d.IsDeleted {
		return ErrAlreadyDeleted
	}
	d.IsDeleted = true
	d.DeletedAt = &at
	d.DeletedBy = &by
	return nil
}

// ListOptions controls list queries across repositories.
type ListOptions struct {
	// IncludeDeleted opts into seeing archived rows. Off by default;
	// reserved for audit/compliance read paths.
	IncludeDeleted bool

	Limit  int
	Offset int
}

const (
	// DefaultListLimit is applied when a caller passes no limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single page.
	MaxListLimit = 500
)

// Normalize clamps pagination to sane bounds.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
