// Package directory contains the organizational entities the ledger
// references: centers, students, faculty, subjects, assignments, and the
// actors who operate on them. This is the core of business logic - there are
// no external dependencies here except x/crypto for password hashing.
package directory

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Role defines what an actor is allowed to see and do. Every actor carries
// exactly one role.
type Role string

const (
	// RoleMaster sees every center and may switch the active one.
	RoleMaster Role = "master"
	// RoleCenterHead is bound to one center and manages it.
	RoleCenterHead Role = "center_head"
	// RoleFaculty is bound to one center and records sessions for their
	// own assignments.
	RoleFaculty Role = "faculty"
)

// IsValid checks that the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleMaster, RoleCenterHead, RoleFaculty:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string { return string(r) }

// IsTenantBound reports whether the role is fixed to a single center.
// Master is the only unbound role.
func (r Role) IsTenantBound() bool { return r != RoleMaster }

// AssignmentState defines the lifecycle of a student-subject-faculty link.
type AssignmentState string

const (
	// AssignmentActive - sessions may be recorded against it.
	AssignmentActive AssignmentState = "active"
	// AssignmentCompleted - a completed-status session closed it; it now
	// appears in the ready-for-transfer filter.
	AssignmentCompleted AssignmentState = "completed"
	// AssignmentTransferred - the student moved on; terminal state.
	AssignmentTransferred AssignmentState = "transferred"
)

// IsValid checks that the state is one of the known states.
func (s AssignmentState) IsValid() bool {
	switch s {
	case AssignmentActive, AssignmentCompleted, AssignmentTransferred:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (s AssignmentState) String() string { return string(s) }

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCenterNotFound - center not found or outside the caller's scope.
	ErrCenterNotFound = shared.NewDomainError("directory", "Center", shared.ErrNotFound, "center not found")

	// ErrStudentNotFound - student not found or outside the caller's scope.
	ErrStudentNotFound = shared.NewDomainError("directory", "Student", shared.ErrNotFound, "student not found")

	// ErrFacultyNotFound - faculty member not found or outside the caller's scope.
	ErrFacultyNotFound = shared.NewDomainError("directory", "Faculty", shared.ErrNotFound, "faculty not found")

	// ErrSubjectNotFound - subject not found or outside the caller's scope.
	ErrSubjectNotFound = shared.NewDomainError("directory", "Subject", shared.ErrNotFound, "subject not found")

	// ErrAssignmentNotFound - assignment not found or outside the caller's scope.
	ErrAssignmentNotFound = shared.NewDomainError("directory", "Assignment", shared.ErrNotFound, "assignment not found")

	// ErrActorNotFound - actor not found.
	ErrActorNotFound = shared.NewDomainError("directory", "Actor", shared.ErrNotFound, "actor not found")

	// ErrInvalidName - entity name is empty or too long.
	ErrInvalidName = shared.NewDomainError("directory", "Name", shared.ErrValidation, "name must be 1-150 characters")

	// ErrInvalidRole - unknown actor role.
	ErrInvalidRole = shared.NewDomainError("directory", "Role", shared.ErrValidation, "role must be master, center_head or faculty")

	// ErrRoleBindingMissing - a tenant-bound role without a center binding.
	ErrRoleBindingMissing = shared.NewDomainError("directory", "Actor", shared.ErrValidation, "center_head and faculty must be bound to a center")

	// ErrAssignmentNotActive - lifecycle transition attempted on a non-active assignment.
	ErrAssignmentNotActive = shared.NewDomainError("directory", "Assignment", shared.ErrStateTransition, "assignment is not active")

	// ErrAssignmentNotCompleted - transfer attempted before completion.
	ErrAssignmentNotCompleted = shared.NewDomainError("directory", "Assignment", shared.ErrStateTransition, "assignment must be completed before transfer")

	// ErrInvalidCredentials - password check failed.
	ErrInvalidCredentials = shared.NewDomainError("directory", "Actor", shared.ErrUnauthorized, "invalid credentials")
)

// ══════════════════════════════════════════════════════════════════════════════
// CENTER (TENANT)
// ══════════════════════════════════════════════════════════════════════════════

// Center is the visibility boundary of the system. Assignments, ledger rows
// and audit scope all hang off a center.
type Center struct {
	ID   shared.TenantID
	Name string

	// Address and Phone are profile fields maintained by the directory
	// CRUD collaborator; the core only carries them through.
	Address string
	Phone   string

	shared.Provenance
	shared.SoftDelete
}

// NewCenter creates a center with validation.
func NewCenter(id shared.TenantID, name string) (*Center, error) {
	name = strings.TrimSpace(name)
	if !id.IsValid() {
		return nil, shared.NewDomainError("directory", "NewCenter", shared.ErrInvalidID, "invalid center ID")
	}
	if len(name) == 0 || len(name) > 150 {
		return nil, ErrInvalidName
	}
	return &Center{ID: id, Name: name}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is a learner enrolled at exactly one center.
type Student struct {
	ID       string
	CenterID shared.TenantID
	FullName string
	Phone    string

	// EnrolledAt is when the student joined the center, used by the
	// extended-enrollment projection.
	EnrolledAt time.Time

	shared.Provenance
	shared.SoftDelete
}

// NewStudent creates a student with validation.
func NewStudent(id string, centerID shared.TenantID, fullName string, enrolledAt time.Time) (*Student, error) {
	fullName = strings.TrimSpace(fullName)
	if id == "" {
		return nil, shared.NewDomainError("directory", "NewStudent", shared.ErrInvalidID, "student ID is required")
	}
	if !centerID.IsValid() {
		return nil, shared.NewDomainError("directory", "NewStudent", shared.ErrInvalidID, "invalid center ID")
	}
	if len(fullName) == 0 || len(fullName) > 150 {
		return nil, ErrInvalidName
	}
	return &Student{ID: id, CenterID: centerID, FullName: fullName, EnrolledAt: enrolledAt}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FACULTY
// ══════════════════════════════════════════════════════════════════════════════

// Faculty is a teaching staff member bound to one center.
type Faculty struct {
	ID       string
	CenterID shared.TenantID
	FullName string

	// ActorID links the faculty profile to its authenticated identity.
	ActorID shared.ActorID

	shared.Provenance
	shared.SoftDelete
}

// NewFaculty creates a faculty member with validation.
func NewFaculty(id string, centerID shared.TenantID, fullName string, actorID shared.ActorID) (*Faculty, error) {
	fullName = strings.TrimSpace(fullName)
	if id == "" {
		return nil, shared.NewDomainError("directory", "NewFaculty", shared.ErrInvalidID, "faculty ID is required")
	}
	if !centerID.IsValid() {
		return nil, shared.NewDomainError("directory", "NewFaculty", shared.ErrInvalidID, "invalid center ID")
	}
	if len(fullName) == 0 || len(fullName) > 150 {
		return nil, ErrInvalidName
	}
	return &Faculty{ID: id, CenterID: centerID, FullName: fullName, ActorID: actorID}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT
// ══════════════════════════════════════════════════════════════════════════════

// Subject is a course of study. TotalTopics is the denominator for the
// nearing-completion projection; zero means the syllabus is open-ended and
// the ratio is undefined.
type Subject struct {
	ID          string
	Name        string
	TotalTopics int

	shared.Provenance
	shared.SoftDelete
}

// NewSubject creates a subject with validation.
func NewSubject(id, name string, totalTopics int) (*Subject, error) {
	name = strings.TrimSpace(name)
	if id == "" {
		return nil, shared.NewDomainError("directory", "NewSubject", shared.ErrInvalidID, "subject ID is required")
	}
	if len(name) == 0 || len(name) > 150 {
		return nil, ErrInvalidName
	}
	if totalTopics < 0 {
		return nil, shared.NewDomainError("directory", "NewSubject", shared.ErrValueOutOfRange, "total topics cannot be negative")
	}
	return &Subject{ID: id, Name: name, TotalTopics: totalTopics}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT
// ══════════════════════════════════════════════════════════════════════════════

// Assignment links a student, a subject and a faculty member within one
// center. It is the aggregate the ledger writes against.
type Assignment struct {
	ID        shared.AssignmentID
	CenterID  shared.TenantID
	StudentID string
	SubjectID string
	FacultyID string
	State     AssignmentState

	// StartedAt is when teaching began, used by the extended-enrollment
	// projection.
	StartedAt time.Time

	// CompletedAt is set exactly once when the state flips to completed.
	CompletedAt *time.Time

	shared.Provenance
	shared.SoftDelete
}

// NewAssignmentParams carries the parameters for creating an assignment.
type NewAssignmentParams struct {
	ID        shared.AssignmentID
	CenterID  shared.TenantID
	StudentID string
	SubjectID string
	FacultyID string
	StartedAt time.Time
}

// NewAssignment creates an active assignment with validation.
func NewAssignment(params NewAssignmentParams) (*Assignment, error) {
	if !params.ID.IsValid() {
		return nil, shared.NewDomainError("directory", "NewAssignment", shared.ErrInvalidID, "invalid assignment ID")
	}
	if !params.CenterID.IsValid() {
		return nil, shared.NewDomainError("directory", "NewAssignment", shared.ErrInvalidID, "invalid center ID")
	}
	if params.StudentID == "" || params.SubjectID == "" || params.FacultyID == "" {
		return nil, shared.NewDomainError("directory", "NewAssignment", shared.ErrEmptyValue, "student, subject and faculty are required")
	}
	return &Assignment{
		ID:        params.ID,
		CenterID:  params.CenterID,
		StudentID: params.StudentID,
		SubjectID: params.SubjectID,
		FacultyID: params.FacultyID,
		State:     AssignmentActive,
		StartedAt: params.StartedAt,
	}, nil
}

// IsActive reports whether sessions may still be recorded.
func (a *Assignment) IsActive() bool { return a.State == AssignmentActive }

// Complete flips the assignment to completed. Called as a side effect of a
// completed-status ledger write; the assignment then shows up in the
// ready-for-transfer filter. No separate queue entity exists.
func (a *Assignment) Complete(at time.Time) error {
	if a.State != AssignmentActive {
		return ErrAssignmentNotActive
	}
	a.State = AssignmentCompleted
	a.CompletedAt = &at
	return nil
}

// Transfer moves a completed assignment to its terminal state.
func (a *Assignment) Transfer() error {
	if a.State != AssignmentCompleted {
		return ErrAssignmentNotCompleted
	}
	a.State = AssignmentTransferred
	return nil
}

// MonthsOpen returns whole months between StartedAt and now, for the
// extended-enrollment threshold.
func (a *Assignment) MonthsOpen(now time.Time) int {
	months := 0
	for t := a.StartedAt.AddDate(0, 1, 0); !t.After(now); t = t.AddDate(0, 1, 0) {
		months++
	}
	return months
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTOR
// ══════════════════════════════════════════════════════════════════════════════

// Actor is an authenticated identity. The authentication collaborator owns
// login flows; the core holds the credential hash and the role binding that
// the RBAC resolver reads.
type Actor struct {
	ID    shared.ActorID
	Email string
	Role  Role

	// CenterID is the fixed tenant binding for center_head and faculty.
	// Empty for master, whose active center lives in session state only.
	CenterID shared.TenantID

	// PasswordHash is a bcrypt hash; never the plaintext.
	PasswordHash string

	shared.Provenance
	shared.SoftDelete
}

// NewActorParams carries the parameters for creating an actor.
type NewActorParams struct {
	ID       shared.ActorID
	Email    string
	Role     Role
	CenterID shared.TenantID
	Password string
}

// NewActor creates an actor with validation and hashes the password.
func NewActor(params NewActorParams) (*Actor, error) {
	if !params.ID.IsValid() {
		return nil, shared.NewDomainError("directory", "NewActor", shared.ErrInvalidID, "invalid actor ID")
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if len(email) < 3 || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("directory", "NewActor", shared.ErrValidation, "invalid email")
	}
	if !params.Role.IsValid() {
		return nil, ErrInvalidRole
	}
	if params.Role.IsTenantBound() && !params.CenterID.IsValid() {
		return nil, ErrRoleBindingMissing
	}
	if params.Role == RoleMaster && !params.CenterID.IsEmpty() {
		return nil, shared.NewDomainError("directory", "NewActor", shared.ErrValidation, "master carries no fixed center binding")
	}

	actor := &Actor{
		ID:       params.ID,
		Email:    email,
		Role:     params.Role,
		CenterID: params.CenterID,
	}
	if err := actor.SetPassword(params.Password); err != nil {
		return nil, err
	}
	return actor, nil
}

// SetPassword hashes and stores a new password.
func (a *Actor) SetPassword(plaintext string) error {
	if len(plaintext) < 8 {
		return shared.NewDomainError("directory", "SetPassword", shared.ErrValidation, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return shared.WrapError("directory", "SetPassword", shared.ErrInvalidInput, "failed to hash password", err)
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (a *Actor) CheckPassword(plaintext string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
