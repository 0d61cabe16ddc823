package attendance

import (
	"strings"

	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION VALIDATOR
// A pure rule layer invoked before every ledger write. It never touches
// storage; callers resolve the assignment and actor first and pass plain
// values in. The same checks run for every write path, internal or external.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// BackdateGraceDays is how far back a write may reach without a
	// reason. Yesterday is within grace; anything older is backdated.
	BackdateGraceDays = 1

	// MinBackdateReasonLength guards against throwaway reasons.
	MinBackdateReasonLength = 10
)

// Input carries everything the rule table needs for one write.
type Input struct {
	// Role of the acting actor.
	Role directory.Role

	// OwnAssignment is true when the acting actor is the faculty member
	// bound to the target assignment.
	OwnAssignment bool

	// Date is the session date being written; Today is the civil date of
	// the write itself.
	Date  shared.Day
	Today shared.Day

	Status  Status
	InTime  *shared.ClockTime
	OutTime *shared.ClockTime

	BackdateReason string
}

// IsBackdated reports whether the input falls outside the grace window.
// This mirrors the stamp NewEvent applies.
func (in Input) IsBackdated() bool {
	return in.Date.Before(in.Today.AddDays(-BackdateGraceDays))
}

// Validator enforces the session rule table.
type Validator struct{}

// NewValidator creates a session validator.
func NewValidator() *Validator { return &Validator{} }

// Check runs the full rule table against one write. Every violation names
// the specific rule so the caller can surface it verbatim.
func (v *Validator) Check(in Input) error {
	if !in.Status.IsValid() {
		return shared.NewDomainError("attendance", "Validate", shared.ErrValidation, "unknown session status")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Date rules
	// ─────────────────────────────────────────────────────────────────────────

	if in.Date.After(in.Today) && !in.Status.AllowsFutureDate() {
		return shared.NewDomainError("attendance", "Validate", shared.ErrFutureDate, "session date cannot be in the future unless status is holiday")
	}

	if in.IsBackdated() {
		reason := strings.TrimSpace(in.BackdateReason)
		if reason == "" {
			return shared.NewDomainError("attendance", "Validate", shared.ErrValidation, "backdate_reason required")
		}
		if len(reason) < MinBackdateReasonLength {
			return shared.NewDomainError("attendance", "Validate", shared.ErrValidation, "backdate_reason too short")
		}
		if in.Role == directory.RoleFaculty && !in.OwnAssignment {
			return shared.NewDomainError("attendance", "Validate", shared.ErrPermissionDenied, "faculty may only backdate sessions for their own assignments")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Time rules
	// ─────────────────────────────────────────────────────────────────────────

	if in.Status.RequiresTimes() {
		if in.InTime == nil || in.OutTime == nil {
			return shared.NewDomainError("attendance", "Validate", shared.ErrValidation, "in_time and out_time required for present status")
		}
		if !in.InTime.IsValid() || !in.OutTime.IsValid() {
			return shared.NewDomainError("attendance", "Validate", shared.ErrValueOutOfRange, "in_time and out_time must be within a single day")
		}
		if !in.InTime.Before(*in.OutTime) {
			return shared.NewDomainError("attendance", "Validate", shared.ErrValidation, "out_time must be after in_time")
		}
	} else if in.InTime != nil || in.OutTime != nil {
		return shared.NewDomainError("attendance", "Validate", shared.ErrValidation, "in_time and out_time are only allowed for present status")
	}

	return nil
}
