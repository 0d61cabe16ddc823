package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SWITCH TENANT COMMAND
// Master-only. Changes the session-scoped active center and records the
// boundary crossing as an ACCESS audit entry. Bound roles cannot reach this
// path; their scope is a fixed function of the profile binding.
// ══════════════════════════════════════════════════════════════════════════════

// SwitchTenantCommand contains the data to switch the active center.
type SwitchTenantCommand struct {
	// Ctx is the resolved authorization context of the acting actor.
	Ctx *rbac.Context

	// TenantID is the center to switch to.
	TenantID shared.TenantID

	// IP of the caller, carried into the audit entry.
	IP string
}

// Validate checks the command shape.
func (c SwitchTenantCommand) Validate() error {
	if c.Ctx == nil {
		return shared.NewDomainError("command", "SwitchTenant", shared.ErrUnauthorized, "missing authorization context")
	}
	if !c.TenantID.IsValid() {
		return shared.NewDomainError("command", "SwitchTenant", shared.ErrInvalidID, "invalid center ID")
	}
	return nil
}

// SwitchTenantResult contains the outcome of a tenant switch.
type SwitchTenantResult struct {
	// ActiveTenant is the center now in effect for the actor's session.
	ActiveTenant shared.TenantID

	// Previous is the center that was active before, empty on first
	// selection.
	Previous shared.TenantID
}

// SwitchTenantHandler handles the SwitchTenantCommand.
type SwitchTenantHandler struct {
	txFactory UnitOfWorkFactory
	sessions  rbac.SessionStore
	bus       shared.EventBus

	now func() time.Time
}

// NewSwitchTenantHandler creates a new SwitchTenantHandler.
func NewSwitchTenantHandler(txFactory UnitOfWorkFactory, sessions rbac.SessionStore, bus shared.EventBus) *SwitchTenantHandler {
	return &SwitchTenantHandler{
		txFactory: txFactory,
		sessions:  sessions,
		bus:       bus,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *SwitchTenantHandler) WithClock(now func() time.Time) *SwitchTenantHandler {
	h.now = now
	return h
}

// Handle executes the switch tenant command.
func (h *SwitchTenantHandler) Handle(ctx context.Context, cmd SwitchTenantCommand) (*SwitchTenantResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if !cmd.Ctx.IsMaster() {
		return nil, rbac.ErrSwitchNotAllowed
	}

	now := h.now()

	// The audit entry commits first. If the center does not exist the
	// lookup inside the transaction fails and nothing changes. Should the
	// session write fail afterwards, the trail shows an ACCESS entry for a
	// switch that never took effect; that reads as an attempted crossing,
	// which is preferable to an active-center change with no trail.
	err := h.txFactory.WithinTx(ctx, func(uow UnitOfWork) error {
		if _, err := uow.Centers().GetByID(ctx, cmd.TenantID); err != nil {
			return err
		}

		entry, err := audit.NewEntry(audit.NewEntryParams{
			ID:         uuid.NewString(),
			ActorID:    cmd.Ctx.ActorID,
			Action:     audit.ActionAccess,
			EntityType: "center",
			EntityID:   cmd.TenantID.String(),
			TenantID:   cmd.TenantID,
			Timestamp:  now,
			IP:         cmd.IP,
		})
		if err != nil {
			return err
		}
		return uow.Audit().Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	previous, err := h.sessions.GetActiveTenant(ctx, cmd.Ctx.ActorID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if err := h.sessions.SetActiveTenant(ctx, cmd.Ctx.ActorID, cmd.TenantID); err != nil {
		return nil, err
	}

	_ = h.bus.Publish(ctx, shared.TenantSwitchedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventTenantSwitched, cmd.Ctx.ActorID.String()),
		ActorID:   cmd.Ctx.ActorID,
		TenantID:  cmd.TenantID,
	})

	return &SwitchTenantResult{ActiveTenant: cmd.TenantID, Previous: previous}, nil
}
