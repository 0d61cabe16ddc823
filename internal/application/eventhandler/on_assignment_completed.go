// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"context"
	"fmt"

	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
	"github.com/learnledger/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON ASSIGNMENT COMPLETED HANDLER
// Reacts to an assignment being closed by a completed session. Surfaces the
// finished pairing to the center head so the handover (transfer or new
// subject) can be arranged.
// ══════════════════════════════════════════════════════════════════════════════

// AssignmentCompletedConfig configures the handler.
type AssignmentCompletedConfig struct {
	// AnnounceCompletion controls whether completions are logged at
	// info level for the operations feed.
	AnnounceCompletion bool
}

// DefaultAssignmentCompletedConfig returns the default configuration.
func DefaultAssignmentCompletedConfig() AssignmentCompletedConfig {
	return AssignmentCompletedConfig{AnnounceCompletion: true}
}

// OnAssignmentCompletedHandler handles assignment completion events.
type OnAssignmentCompletedHandler struct {
	students directory.StudentRepository
	faculty  directory.FacultyRepository

	log    *logger.Logger
	config AssignmentCompletedConfig
}

// NewOnAssignmentCompletedHandler creates a new handler.
func NewOnAssignmentCompletedHandler(
	students directory.StudentRepository,
	faculty directory.FacultyRepository,
	log *logger.Logger,
	config AssignmentCompletedConfig,
) *OnAssignmentCompletedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnAssignmentCompletedHandler{
		students: students,
		faculty:  faculty,
		log:      log.With(logger.String("handler", "on_assignment_completed")),
		config:   config,
	}
}

// Name implements shared.EventHandler.
func (h *OnAssignmentCompletedHandler) Name() string {
	return "on_assignment_completed"
}

// Handle implements shared.EventHandler.
func (h *OnAssignmentCompletedHandler) Handle(ctx context.Context, event shared.Event) error {
	completed, ok := event.(shared.AssignmentCompletedEvent)
	if !ok {
		h.log.Warn("received unexpected event type",
			logger.String("event_type", string(event.EventType())),
		)
		return nil
	}

	studentName := completed.StudentID
	if h.students != nil {
		student, err := h.students.GetByID(ctx, completed.StudentID)
		if err != nil {
			return fmt.Errorf("get student: %w", err)
		}
		studentName = student.FullName
	}

	facultyName := completed.FacultyID
	if h.faculty != nil {
		f, err := h.faculty.GetByID(ctx, completed.FacultyID)
		if err != nil {
			return fmt.Errorf("get faculty: %w", err)
		}
		facultyName = f.FullName
	}

	if h.config.AnnounceCompletion {
		h.log.Info("assignment completed, ready for transfer",
			logger.AssignmentID(completed.AssignmentID.String()),
			logger.CenterID(completed.TenantID.String()),
			logger.String("student", studentName),
			logger.String("faculty", facultyName),
		)
	}
	return nil
}
