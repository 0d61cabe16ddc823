// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// Every command runs its domain write and its audit write against the same
// transaction through these repositories. Atomicity lives in code, not in a
// framework hook: if any write inside the function fails, the whole
// transaction rolls back and no partial state survives. Implemented over
// pgx in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork exposes transaction-scoped repositories.
type UnitOfWork interface {
	// Events returns the ledger store bound to the transaction.
	Events() attendance.EventStore

	// Audit returns the audit recorder bound to the transaction.
	Audit() audit.Recorder

	// Assignments returns the assignment repository bound to the transaction.
	Assignments() directory.AssignmentRepository

	// Centers returns the center repository bound to the transaction.
	Centers() directory.CenterRepository

	// Students returns the student repository bound to the transaction.
	Students() directory.StudentRepository

	// Faculty returns the faculty repository bound to the transaction.
	Faculty() directory.FacultyRepository

	// Subjects returns the subject repository bound to the transaction.
	Subjects() directory.SubjectRepository

	// Actors returns the actor repository bound to the transaction.
	Actors() directory.ActorRepository
}

// UnitOfWorkFactory opens transactions.
type UnitOfWorkFactory interface {
	// WithinTx begins a transaction, runs fn against it, and commits when
	// fn returns nil. Any error from fn rolls everything back and is
	// returned unchanged.
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}
