package directory

import (
	"context"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the contract for the storage layer. Implementations
// live in infrastructure/persistence. Every Get/List excludes archived rows
// unless ListOptions.IncludeDeleted is set; none of them exposes a hard
// delete, only Archive.
// ══════════════════════════════════════════════════════════════════════════════

// CenterRepository defines storage operations for centers.
type CenterRepository interface {
	// Create persists a new center.
	Create(ctx context.Context, center *Center) error

	// GetByID returns a center by ID.
	// Returns ErrCenterNotFound if it does not exist or is archived.
	GetByID(ctx context.Context, id shared.TenantID) (*Center, error)

	// List returns centers with pagination.
	List(ctx context.Context, opts shared.ListOptions) ([]*Center, error)

	// Archive soft-deletes a center.
	Archive(ctx context.Context, id shared.TenantID, by shared.ActorID) error
}

// StudentRepository defines storage operations for students.
type StudentRepository interface {
	// Create persists a new student.
	Create(ctx context.Context, student *Student) error

	// GetByID returns a student by ID.
	// Returns ErrStudentNotFound if it does not exist or is archived.
	GetByID(ctx context.Context, id string) (*Student, error)

	// ListByCenter returns students of one center with pagination.
	ListByCenter(ctx context.Context, centerID shared.TenantID, opts shared.ListOptions) ([]*Student, error)

	// Archive soft-deletes a student.
	Archive(ctx context.Context, id string, by shared.ActorID) error
}

// FacultyRepository defines storage operations for faculty members.
type FacultyRepository interface {
	// Create persists a new faculty member.
	Create(ctx context.Context, faculty *Faculty) error

	// GetByID returns a faculty member by ID.
	// Returns ErrFacultyNotFound if it does not exist or is archived.
	GetByID(ctx context.Context, id string) (*Faculty, error)

	// GetByActorID returns the faculty profile behind an authenticated
	// identity. Returns ErrFacultyNotFound for actors without one.
	GetByActorID(ctx context.Context, actorID shared.ActorID) (*Faculty, error)

	// ListByCenter returns faculty of one center with pagination.
	ListByCenter(ctx context.Context, centerID shared.TenantID, opts shared.ListOptions) ([]*Faculty, error)

	// Archive soft-deletes a faculty member.
	Archive(ctx context.Context, id string, by shared.ActorID) error
}

// SubjectRepository defines storage operations for subjects.
type SubjectRepository interface {
	// Create persists a new subject.
	Create(ctx context.Context, subject *Subject) error

	// GetByID returns a subject by ID.
	// Returns ErrSubjectNotFound if it does not exist or is archived.
	GetByID(ctx context.Context, id string) (*Subject, error)

	// List returns subjects with pagination.
	List(ctx context.Context, opts shared.ListOptions) ([]*Subject, error)

	// Archive soft-deletes a subject.
	Archive(ctx context.Context, id string, by shared.ActorID) error
}

// AssignmentFilter narrows assignment lists.
type AssignmentFilter struct {
	// State filters by lifecycle state when non-empty. The
	// ready-for-transfer read is State=AssignmentCompleted.
	State AssignmentState

	// FacultyID filters to one faculty member's assignments.
	FacultyID string

	// StudentID filters to one student's assignments.
	StudentID string
}

// AssignmentRepository defines storage operations for assignments.
type AssignmentRepository interface {
	// Create persists a new assignment.
	Create(ctx context.Context, assignment *Assignment) error

	// GetByID returns an assignment by ID.
	// Returns ErrAssignmentNotFound if it does not exist or is archived.
	GetByID(ctx context.Context, id shared.AssignmentID) (*Assignment, error)

	// ListByCenter returns assignments of one center matching the filter.
	ListByCenter(ctx context.Context, centerID shared.TenantID, filter AssignmentFilter, opts shared.ListOptions) ([]*Assignment, error)

	// Update persists lifecycle changes (state flips, CompletedAt).
	// Returns ErrAssignmentNotFound if it does not exist.
	Update(ctx context.Context, assignment *Assignment) error

	// Archive soft-deletes an assignment.
	Archive(ctx context.Context, id shared.AssignmentID, by shared.ActorID) error
}

// ActorRepository defines storage operations for actors.
type ActorRepository interface {
	// Create persists a new actor.
	Create(ctx context.Context, actor *Actor) error

	// GetByID returns an actor by ID.
	// Returns ErrActorNotFound if it does not exist or is archived.
	GetByID(ctx context.Context, id shared.ActorID) (*Actor, error)

	// GetByEmail returns an actor by email, for the login path.
	// Returns ErrActorNotFound if it does not exist or is archived.
	GetByEmail(ctx context.Context, email string) (*Actor, error)

	// Archive soft-deletes an actor.
	Archive(ctx context.Context, id shared.ActorID, by shared.ActorID) error
}
