package eventhandler

import (
	"context"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
	"github.com/learnledger/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON BACKDATED SESSION HANDLER
// Flags backdated ledger writes for compliance review. The write itself has
// already committed with its justification; this handler only surfaces it.
// ══════════════════════════════════════════════════════════════════════════════

// OnBackdatedSessionHandler watches session recordings and flags backdated
// ones.
type OnBackdatedSessionHandler struct {
	log *logger.Logger
}

// NewOnBackdatedSessionHandler creates a new handler.
func NewOnBackdatedSessionHandler(log *logger.Logger) *OnBackdatedSessionHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnBackdatedSessionHandler{
		log: log.With(logger.String("handler", "on_backdated_session")),
	}
}

// Name implements shared.EventHandler.
func (h *OnBackdatedSessionHandler) Name() string {
	return "on_backdated_session"
}

// Handle implements shared.EventHandler.
func (h *OnBackdatedSessionHandler) Handle(_ context.Context, event shared.Event) error {
	recorded, ok := event.(shared.SessionRecordedEvent)
	if !ok {
		h.log.Warn("received unexpected event type",
			logger.String("event_type", string(event.EventType())),
		)
		return nil
	}
	if !recorded.IsBackdated {
		return nil
	}

	h.log.Warn("backdated session recorded",
		logger.AssignmentID(recorded.AssignmentID.String()),
		logger.CenterID(recorded.TenantID.String()),
		logger.String("date", recorded.Date),
		logger.String("status", recorded.Status),
		logger.ActorID(recorded.RecordedBy.String()),
	)
	return nil
}
