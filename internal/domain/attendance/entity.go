// Package attendance contains the append-only session ledger: the Event
// entity, the validation rules that gate every write, and the store
// contract. Events are immutable after creation; corrections are new
// compensating events, never in-place edits.
package attendance

import (
	"strings"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the outcome recorded for a session date.
type Status string

const (
	// StatusPresent - the student attended; in/out times are required.
	StatusPresent Status = "present"
	// StatusAbsent - the student did not attend.
	StatusAbsent Status = "absent"
	// StatusLeave - an excused absence.
	StatusLeave Status = "leave"
	// StatusHoliday - no session was scheduled. The only status that may
	// be dated in the future.
	StatusHoliday Status = "holiday"
	// StatusCompleted - the final session; flips the assignment to its
	// completed state as a side effect.
	StatusCompleted Status = "completed"
)

// IsValid checks that the status is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLeave, StatusHoliday, StatusCompleted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string { return string(s) }

// RequiresTimes reports whether in/out times are mandatory for this status.
func (s Status) RequiresTimes() bool { return s == StatusPresent }

// AllowsFutureDate reports whether the status may be dated after today.
func (s Status) AllowsFutureDate() bool { return s == StatusHoliday }

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventNotFound - ledger row not found or outside the caller's scope.
	ErrEventNotFound = shared.NewDomainError("attendance", "Event", shared.ErrNotFound, "attendance event not found")

	// ErrOverlappingSession - another event for the same assignment and
	// date has an overlapping time range.
	ErrOverlappingSession = shared.NewDomainError("attendance", "Event", shared.ErrConflict, "overlapping session exists for this assignment and date")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: EVENT
// ══════════════════════════════════════════════════════════════════════════════

// Event is one ledger row. DurationMinutes and IsBackdated are stamped
// exactly once by NewEvent and never recomputed, so historical reports stay
// stable even if the live "today" moves or the rules change later. There are
// no mutator methods and the store exposes no update or delete.
type Event struct {
	ID           string
	AssignmentID shared.AssignmentID
	CenterID     shared.TenantID
	StudentID    string
	FacultyID    string

	Date   shared.Day
	Status Status

	// InTime/OutTime are set only for present-status events.
	InTime  *shared.ClockTime
	OutTime *shared.ClockTime

	// DurationMinutes = OutTime - InTime, stamped at write time.
	// Present-status events carry it; all others leave it nil.
	DurationMinutes *int

	// Topics covered in the session, referenced by ID.
	Topics []string

	// IsBackdated = Date < today-1, evaluated against the clock at write
	// time.
	IsBackdated    bool
	BackdateReason string

	Notes string

	CreatedAt time.Time
	CreatedBy shared.ActorID
}

// NewEventParams carries the validated write parameters. Run Validator.Check
// on the matching Input first; NewEvent only stamps, it does not re-validate
// the rule table.
type NewEventParams struct {
	ID           string
	AssignmentID shared.AssignmentID
	CenterID     shared.TenantID
	StudentID    string
	FacultyID    string

	Date   shared.Day
	Status Status

	InTime  *shared.ClockTime
	OutTime *shared.ClockTime

	Topics         []string
	BackdateReason string
	Notes          string

	// Today anchors the backdating stamp; callers pass the civil date of
	// the write so the stamp and the validation agree on the same day.
	Today shared.Day

	CreatedBy shared.ActorID
	CreatedAt time.Time
}

// NewEvent builds an immutable ledger row, stamping the derived fields.
func NewEvent(params NewEventParams) (*Event, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("attendance", "NewEvent", shared.ErrInvalidID, "event ID is required")
	}
	if !params.AssignmentID.IsValid() {
		return nil, shared.NewDomainError("attendance", "NewEvent", shared.ErrInvalidID, "invalid assignment ID")
	}
	if !params.CenterID.IsValid() {
		return nil, shared.NewDomainError("attendance", "NewEvent", shared.ErrInvalidID, "invalid center ID")
	}
	if !params.Status.IsValid() {
		return nil, shared.NewDomainError("attendance", "NewEvent", shared.ErrValidation, "unknown status")
	}

	e := &Event{
		ID:             params.ID,
		AssignmentID:   params.AssignmentID,
		CenterID:       params.CenterID,
		StudentID:      params.StudentID,
		FacultyID:      params.FacultyID,
		Date:           params.Date,
		Status:         params.Status,
		InTime:         params.InTime,
		OutTime:        params.OutTime,
		Topics:         normalizeTopics(params.Topics),
		BackdateReason: strings.TrimSpace(params.BackdateReason),
		Notes:          strings.TrimSpace(params.Notes),
		CreatedAt:      params.CreatedAt,
		CreatedBy:      params.CreatedBy,
	}

	// Stamp once. These two lines are the only place the derived fields
	// are ever computed.
	e.IsBackdated = params.Date.Before(params.Today.AddDays(-1))
	if params.Status == StatusPresent && params.InTime != nil && params.OutTime != nil {
		minutes := params.InTime.MinutesUntil(*params.OutTime)
		e.DurationMinutes = &minutes
	}

	return e, nil
}

// Overlaps reports whether another present-status event on the same
// assignment and date has an intersecting time range. Events without times
// never overlap anything.
func (e *Event) Overlaps(other *Event) bool {
	if e.AssignmentID != other.AssignmentID || !e.Date.Equal(other.Date) {
		return false
	}
	if e.InTime == nil || e.OutTime == nil || other.InTime == nil || other.OutTime == nil {
		return false
	}
	return e.InTime.Before(*other.OutTime) && other.InTime.Before(*e.OutTime)
}

// TopicCount returns the number of distinct topics covered.
func (e *Event) TopicCount() int { return len(e.Topics) }

func normalizeTopics(topics []string) []string {
	if len(topics) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
