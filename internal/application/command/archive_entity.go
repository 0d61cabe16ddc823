package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ARCHIVE ENTITY COMMAND
// The single soft-delete path for directory entities. Archival is monotonic
// and audited as DELETE with before/after snapshots; no hard delete exists
// anywhere.
// ══════════════════════════════════════════════════════════════════════════════

// EntityKind names an archivable directory entity type.
type EntityKind string

const (
	KindCenter     EntityKind = "center"
	KindStudent    EntityKind = "student"
	KindFaculty    EntityKind = "faculty"
	KindSubject    EntityKind = "subject"
	KindAssignment EntityKind = "assignment"
	KindActor      EntityKind = "actor"
)

// IsValid checks that the kind is one of the known kinds.
func (k EntityKind) IsValid() bool {
	switch k {
	case KindCenter, KindStudent, KindFaculty, KindSubject, KindAssignment, KindActor:
		return true
	default:
		return false
	}
}

// ArchiveEntityCommand contains the data to archive an entity.
type ArchiveEntityCommand struct {
	// Ctx is the resolved authorization context of the acting actor.
	Ctx *rbac.Context

	Kind     EntityKind
	EntityID string

	// Reason is carried into the audit entry.
	Reason string

	// IP of the caller, carried into the audit entry.
	IP string
}

// Validate checks the command shape.
func (c ArchiveEntityCommand) Validate() error {
	if c.Ctx == nil {
		return shared.NewDomainError("command", "ArchiveEntity", shared.ErrUnauthorized, "missing authorization context")
	}
	if !c.Kind.IsValid() {
		return shared.NewDomainError("command", "ArchiveEntity", shared.ErrValidation, "unknown entity kind")
	}
	if c.EntityID == "" {
		return shared.NewDomainError("command", "ArchiveEntity", shared.ErrEmptyValue, "entity ID is required")
	}
	return nil
}

// ArchiveEntityHandler handles the ArchiveEntityCommand.
type ArchiveEntityHandler struct {
	txFactory UnitOfWorkFactory
	bus       shared.EventBus

	now func() time.Time
}

// NewArchiveEntityHandler creates a new ArchiveEntityHandler.
func NewArchiveEntityHandler(txFactory UnitOfWorkFactory, bus shared.EventBus) *ArchiveEntityHandler {
	return &ArchiveEntityHandler{
		txFactory: txFactory,
		bus:       bus,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *ArchiveEntityHandler) WithClock(now func() time.Time) *ArchiveEntityHandler {
	h.now = now
	return h
}

// Handle executes the archive entity command.
func (h *ArchiveEntityHandler) Handle(ctx context.Context, cmd ArchiveEntityCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	// Faculty manages sessions, not the directory.
	if cmd.Ctx.Role == directory.RoleFaculty {
		return shared.NewDomainError("command", "ArchiveEntity", shared.ErrPermissionDenied, "faculty may not archive directory entities")
	}

	now := h.now()

	err := h.txFactory.WithinTx(ctx, func(uow UnitOfWork) error {
		before, after, tenantID, err := h.archive(ctx, uow, cmd, now)
		if err != nil {
			return err
		}

		entry, err := audit.NewEntry(audit.NewEntryParams{
			ID:         uuid.NewString(),
			ActorID:    cmd.Ctx.ActorID,
			Action:     audit.ActionDelete,
			EntityType: string(cmd.Kind),
			EntityID:   cmd.EntityID,
			TenantID:   tenantID,
			Before:     before,
			After:      after,
			Reason:     cmd.Reason,
			Timestamp:  now,
			IP:         cmd.IP,
		})
		if err != nil {
			return err
		}
		return uow.Audit().Record(ctx, entry)
	})
	if err != nil {
		return err
	}

	_ = h.bus.Publish(ctx, shared.EntityArchivedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventEntityArchived, cmd.EntityID),
		EntityType: string(cmd.Kind),
		EntityID:   cmd.EntityID,
		ArchivedBy: cmd.Ctx.ActorID,
	})

	return nil
}

// archive dispatches on the entity kind, returning the audit snapshots and
// the tenant the entity belongs to.
func (h *ArchiveEntityHandler) archive(ctx context.Context, uow UnitOfWork, cmd ArchiveEntityCommand, now time.Time) (before, after audit.State, tenantID shared.TenantID, err error) {
	by := cmd.Ctx.ActorID

	switch cmd.Kind {
	case KindCenter:
		// Centers are the boundary itself; only master may remove one.
		if !cmd.Ctx.IsMaster() {
			return nil, nil, "", rbac.ErrScopeViolation
		}
		id, idErr := shared.NewTenantID(cmd.EntityID)
		if idErr != nil {
			return nil, nil, "", idErr
		}
		center, getErr := uow.Centers().GetByID(ctx, id)
		if getErr != nil {
			return nil, nil, "", getErr
		}
		before = centerState(center)
		if err = uow.Centers().Archive(ctx, id, by); err != nil {
			return nil, nil, "", err
		}
		after = archivedState(before, by, now)
		return before, after, center.ID, nil

	case KindStudent:
		student, getErr := uow.Students().GetByID(ctx, cmd.EntityID)
		if getErr != nil {
			return nil, nil, "", getErr
		}
		if err = cmd.Ctx.RequireTenant(student.CenterID); err != nil {
			return nil, nil, "", err
		}
		before = audit.State{"id": student.ID, "center_id": student.CenterID.String(), "full_name": student.FullName}
		if err = uow.Students().Archive(ctx, student.ID, by); err != nil {
			return nil, nil, "", err
		}
		after = archivedState(before, by, now)
		return before, after, student.CenterID, nil

	case KindFaculty:
		faculty, getErr := uow.Faculty().GetByID(ctx, cmd.EntityID)
		if getErr != nil {
			return nil, nil, "", getErr
		}
		if err = cmd.Ctx.RequireTenant(faculty.CenterID); err != nil {
			return nil, nil, "", err
		}
		before = audit.State{"id": faculty.ID, "center_id": faculty.CenterID.String(), "full_name": faculty.FullName}
		if err = uow.Faculty().Archive(ctx, faculty.ID, by); err != nil {
			return nil, nil, "", err
		}
		after = archivedState(before, by, now)
		return before, after, faculty.CenterID, nil

	case KindSubject:
		// Subjects are shared across centers; master only.
		if !cmd.Ctx.IsMaster() {
			return nil, nil, "", rbac.ErrScopeViolation
		}
		subject, getErr := uow.Subjects().GetByID(ctx, cmd.EntityID)
		if getErr != nil {
			return nil, nil, "", getErr
		}
		before = audit.State{"id": subject.ID, "name": subject.Name, "total_topics": subject.TotalTopics}
		if err = uow.Subjects().Archive(ctx, subject.ID, by); err != nil {
			return nil, nil, "", err
		}
		after = archivedState(before, by, now)
		return before, after, "", nil

	case KindAssignment:
		id, idErr := shared.NewAssignmentID(cmd.EntityID)
		if idErr != nil {
			return nil, nil, "", idErr
		}
		assignment, getErr := uow.Assignments().GetByID(ctx, id)
		if getErr != nil {
			return nil, nil, "", getErr
		}
		if err = cmd.Ctx.RequireTenant(assignment.CenterID); err != nil {
			return nil, nil, "", err
		}
		before = assignmentState(assignment)
		if err = uow.Assignments().Archive(ctx, assignment.ID, by); err != nil {
			return nil, nil, "", err
		}
		after = archivedState(before, by, now)
		return before, after, assignment.CenterID, nil

	case KindActor:
		if !cmd.Ctx.IsMaster() {
			return nil, nil, "", rbac.ErrScopeViolation
		}
		id, idErr := shared.NewActorID(cmd.EntityID)
		if idErr != nil {
			return nil, nil, "", idErr
		}
		actor, getErr := uow.Actors().GetByID(ctx, id)
		if getErr != nil {
			return nil, nil, "", getErr
		}
		before = audit.State{"id": actor.ID.String(), "email": actor.Email, "role": actor.Role.String()}
		if err = uow.Actors().Archive(ctx, actor.ID, by); err != nil {
			return nil, nil, "", err
		}
		after = archivedState(before, by, now)
		return before, after, actor.CenterID, nil
	}

	return nil, nil, "", shared.NewDomainError("command", "ArchiveEntity", shared.ErrValidation, "unknown entity kind")
}

func centerState(c *directory.Center) audit.State {
	return audit.State{"id": c.ID.String(), "name": c.Name, "address": c.Address, "phone": c.Phone}
}

// archivedState derives the after-snapshot of a soft delete from the before
// state plus the deletion stamps.
func archivedState(before audit.State, by shared.ActorID, at time.Time) audit.State {
	after := make(audit.State, len(before)+3)
	for k, v := range before {
		after[k] = v
	}
	after["is_deleted"] = true
	after["deleted_by"] = by.String()
	after["deleted_at"] = at.Format(time.RFC3339)
	return after
}
