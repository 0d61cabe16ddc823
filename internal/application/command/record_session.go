package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD SESSION COMMAND
// The single write path into the ledger. Runs the session rule table, the
// overlap check, the append, its audit entry, and any assignment flip inside
// one transaction. Identical semantics whether invoked over HTTP or from an
// internal caller: there is no bypass path.
// ══════════════════════════════════════════════════════════════════════════════

// RecordSessionCommand contains the data to record a session.
type RecordSessionCommand struct {
	// Ctx is the resolved authorization context of the acting actor.
	Ctx *rbac.Context

	AssignmentID shared.AssignmentID
	Date         shared.Day
	Status       attendance.Status

	InTime  *shared.ClockTime
	OutTime *shared.ClockTime

	Topics         []string
	Notes          string
	BackdateReason string

	// IP of the caller, carried into the audit entry.
	IP string
}

// Validate checks the command shape. Rule-table validation happens later,
// once the assignment is loaded.
func (c RecordSessionCommand) Validate() error {
	if c.Ctx == nil {
		return shared.NewDomainError("command", "RecordSession", shared.ErrUnauthorized, "missing authorization context")
	}
	if !c.AssignmentID.IsValid() {
		return shared.NewDomainError("command", "RecordSession", shared.ErrInvalidID, "invalid assignment ID")
	}
	if c.Date.IsZero() {
		return shared.NewDomainError("command", "RecordSession", shared.ErrEmptyValue, "date is required")
	}
	if !c.Status.IsValid() {
		return shared.NewDomainError("command", "RecordSession", shared.ErrValidation, "unknown session status")
	}
	return nil
}

// RecordSessionResult contains the outcome of a recorded session.
type RecordSessionResult struct {
	// Event is the immutable ledger row that was appended.
	Event *attendance.Event

	// AssignmentCompleted is true when this write flipped the assignment
	// into the ready-for-transfer state.
	AssignmentCompleted bool
}

// RecordSessionHandler handles the RecordSessionCommand.
type RecordSessionHandler struct {
	txFactory UnitOfWorkFactory
	validator *attendance.Validator
	bus       shared.EventBus

	// now is swappable in tests.
	now func() time.Time
}

// NewRecordSessionHandler creates a new RecordSessionHandler.
func NewRecordSessionHandler(txFactory UnitOfWorkFactory, validator *attendance.Validator, bus shared.EventBus) *RecordSessionHandler {
	return &RecordSessionHandler{
		txFactory: txFactory,
		validator: validator,
		bus:       bus,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *RecordSessionHandler) WithClock(now func() time.Time) *RecordSessionHandler {
	h.now = now
	return h
}

// Handle executes the record session command.
func (h *RecordSessionHandler) Handle(ctx context.Context, cmd RecordSessionCommand) (*RecordSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.now()
	today := shared.DayOf(now)

	var (
		result RecordSessionResult
		events []shared.Event
	)

	err := h.txFactory.WithinTx(ctx, func(uow UnitOfWork) error {
		assignment, err := uow.Assignments().GetByID(ctx, cmd.AssignmentID)
		if err != nil {
			return err
		}

		// Out-of-scope assignments read as not found.
		if err := cmd.Ctx.RequireTenant(assignment.CenterID); err != nil {
			return err
		}
		if !assignment.IsActive() {
			return directory.ErrAssignmentNotActive
		}

		if err := h.validator.Check(attendance.Input{
			Role:           cmd.Ctx.Role,
			OwnAssignment:  cmd.Ctx.OwnsAssignment(assignment),
			Date:           cmd.Date,
			Today:          today,
			Status:         cmd.Status,
			InTime:         cmd.InTime,
			OutTime:        cmd.OutTime,
			BackdateReason: cmd.BackdateReason,
		}); err != nil {
			return err
		}

		if cmd.Status == attendance.StatusPresent {
			overlap, err := uow.Events().HasOverlap(ctx, assignment.ID, cmd.Date, *cmd.InTime, *cmd.OutTime)
			if err != nil {
				return err
			}
			if overlap {
				return attendance.ErrOverlappingSession
			}
		}

		event, err := attendance.NewEvent(attendance.NewEventParams{
			ID:             uuid.NewString(),
			AssignmentID:   assignment.ID,
			CenterID:       assignment.CenterID,
			StudentID:      assignment.StudentID,
			FacultyID:      assignment.FacultyID,
			Date:           cmd.Date,
			Status:         cmd.Status,
			InTime:         cmd.InTime,
			OutTime:        cmd.OutTime,
			Topics:         cmd.Topics,
			BackdateReason: cmd.BackdateReason,
			Notes:          cmd.Notes,
			Today:          today,
			CreatedBy:      cmd.Ctx.ActorID,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}

		if err := uow.Events().Append(ctx, event); err != nil {
			return err
		}

		createEntry, err := audit.NewEntry(audit.NewEntryParams{
			ID:         uuid.NewString(),
			ActorID:    cmd.Ctx.ActorID,
			Action:     audit.ActionCreate,
			EntityType: "attendance_event",
			EntityID:   event.ID,
			TenantID:   event.CenterID,
			After:      eventState(event),
			Reason:     event.BackdateReason,
			Timestamp:  now,
			IP:         cmd.IP,
		})
		if err != nil {
			return err
		}
		if err := uow.Audit().Record(ctx, createEntry); err != nil {
			return err
		}

		result.Event = event
		events = append(events, attendanceRecordedEvent(event))

		// A completed session flips the assignment; the flip is audited
		// as its own UPDATE with before/after snapshots.
		if cmd.Status == attendance.StatusCompleted {
			before := assignmentState(assignment)
			if err := assignment.Complete(now); err != nil {
				return err
			}
			assignment.StampModified(cmd.Ctx.ActorID, now)

			if err := uow.Assignments().Update(ctx, assignment); err != nil {
				return err
			}

			flipEntry, err := audit.NewEntry(audit.NewEntryParams{
				ID:         uuid.NewString(),
				ActorID:    cmd.Ctx.ActorID,
				Action:     audit.ActionUpdate,
				EntityType: "assignment",
				EntityID:   assignment.ID.String(),
				TenantID:   assignment.CenterID,
				Before:     before,
				After:      assignmentState(assignment),
				Timestamp:  now,
				IP:         cmd.IP,
			})
			if err != nil {
				return err
			}
			if err := uow.Audit().Record(ctx, flipEntry); err != nil {
				return err
			}

			result.AssignmentCompleted = true
			events = append(events, assignmentCompletedEvent(assignment))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Publish only after the transaction committed; subscribers must
	// never observe state that could still roll back.
	for _, e := range events {
		_ = h.bus.Publish(ctx, e)
	}

	return &result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func eventState(e *attendance.Event) audit.State {
	state := audit.State{
		"id":            e.ID,
		"assignment_id": e.AssignmentID.String(),
		"center_id":     e.CenterID.String(),
		"student_id":    e.StudentID,
		"faculty_id":    e.FacultyID,
		"date":          e.Date.String(),
		"status":        e.Status.String(),
		"is_backdated":  e.IsBackdated,
		"created_by":    e.CreatedBy.String(),
	}
	if e.InTime != nil {
		state["in_time"] = e.InTime.String()
	}
	if e.OutTime != nil {
		state["out_time"] = e.OutTime.String()
	}
	if e.DurationMinutes != nil {
		state["duration_minutes"] = *e.DurationMinutes
	}
	if len(e.Topics) > 0 {
		state["topics"] = e.Topics
	}
	if e.BackdateReason != "" {
		state["backdate_reason"] = e.BackdateReason
	}
	if e.Notes != "" {
		state["notes"] = e.Notes
	}
	return state
}

func assignmentState(a *directory.Assignment) audit.State {
	state := audit.State{
		"id":         a.ID.String(),
		"center_id":  a.CenterID.String(),
		"student_id": a.StudentID,
		"subject_id": a.SubjectID,
		"faculty_id": a.FacultyID,
		"state":      a.State.String(),
	}
	if a.CompletedAt != nil {
		state["completed_at"] = a.CompletedAt.Format(time.RFC3339)
	}
	return state
}

func attendanceRecordedEvent(e *attendance.Event) shared.SessionRecordedEvent {
	return shared.SessionRecordedEvent{
		BaseEvent:    shared.NewBaseEvent(shared.EventSessionRecorded, e.ID),
		TenantID:     e.CenterID,
		AssignmentID: e.AssignmentID,
		Status:       e.Status.String(),
		Date:         e.Date.String(),
		IsBackdated:  e.IsBackdated,
		RecordedBy:   e.CreatedBy,
	}
}

func assignmentCompletedEvent(a *directory.Assignment) shared.AssignmentCompletedEvent {
	return shared.AssignmentCompletedEvent{
		BaseEvent:    shared.NewBaseEvent(shared.EventAssignmentCompleted, a.ID.String()),
		TenantID:     a.CenterID,
		AssignmentID: a.ID,
		StudentID:    a.StudentID,
		FacultyID:    a.FacultyID,
	}
}
