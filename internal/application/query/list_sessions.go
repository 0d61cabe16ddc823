package query

import (
	"context"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST SESSIONS QUERY
// Scoped ledger reads for the reporting layer, in the wire shape of an
// attendance event.
// ══════════════════════════════════════════════════════════════════════════════

// ListSessionsQuery contains the filter for a ledger listing.
type ListSessionsQuery struct {
	// Ctx is the resolved authorization context of the caller.
	Ctx *rbac.Context

	From string
	To   string

	AssignmentID shared.AssignmentID
	StudentID    string
	FacultyID    string
	Statuses     []attendance.Status

	Limit  int
	Offset int
}

// Validate checks the query.
func (q *ListSessionsQuery) Validate() error {
	if q.Ctx == nil {
		return shared.NewDomainError("query", "ListSessions", shared.ErrUnauthorized, "missing authorization context")
	}
	for _, s := range q.Statuses {
		if !s.IsValid() {
			return shared.NewDomainError("query", "ListSessions", shared.ErrValidation, "unknown session status")
		}
	}
	return nil
}

// SessionDTO is the wire shape of one ledger row.
type SessionDTO struct {
	ID           string   `json:"id"`
	AssignmentID string   `json:"assignment_id"`
	StudentID    string   `json:"student_id"`
	FacultyID    string   `json:"faculty_id"`
	Date         string   `json:"date"`
	Status       string   `json:"status"`
	InTime       string   `json:"in_time,omitempty"`
	OutTime      string   `json:"out_time,omitempty"`
	Duration     *int     `json:"duration_minutes,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	IsBackdated  bool     `json:"is_backdated"`
	Reason       string   `json:"backdate_reason,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	CreatedAt    string   `json:"created_at"`
	CreatedBy    string   `json:"created_by"`
}

// ListSessionsResult contains the listed sessions, newest date first.
type ListSessionsResult struct {
	CenterID shared.TenantID `json:"center_id"`
	Sessions []SessionDTO    `json:"sessions"`
}

// ListSessionsHandler handles ledger listings.
type ListSessionsHandler struct {
	events attendance.EventStore
}

// NewListSessionsHandler creates a new handler.
func NewListSessionsHandler(events attendance.EventStore) *ListSessionsHandler {
	return &ListSessionsHandler{events: events}
}

// Handle executes the query.
func (h *ListSessionsHandler) Handle(ctx context.Context, query ListSessionsQuery) (*ListSessionsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	scope, err := query.Ctx.Scope()
	if err != nil {
		return nil, err
	}

	filter := attendance.Filter{
		AssignmentID: query.AssignmentID,
		StudentID:    query.StudentID,
		FacultyID:    query.FacultyID,
		Statuses:     query.Statuses,
	}
	if query.From != "" {
		if filter.From, err = shared.ParseDay(query.From); err != nil {
			return nil, err
		}
	}
	if query.To != "" {
		if filter.To, err = shared.ParseDay(query.To); err != nil {
			return nil, err
		}
	}

	events, err := h.events.ListByCenter(ctx, scope, filter, shared.ListOptions{
		Limit:  query.Limit,
		Offset: query.Offset,
	}.Normalize())
	if err != nil {
		return nil, err
	}

	result := &ListSessionsResult{CenterID: scope, Sessions: make([]SessionDTO, 0, len(events))}
	for _, e := range events {
		result.Sessions = append(result.Sessions, toSessionDTO(e))
	}
	return result, nil
}

func toSessionDTO(e *attendance.Event) SessionDTO {
	dto := SessionDTO{
		ID:           e.ID,
		AssignmentID: e.AssignmentID.String(),
		StudentID:    e.StudentID,
		FacultyID:    e.FacultyID,
		Date:         e.Date.String(),
		Status:       e.Status.String(),
		Duration:     e.DurationMinutes,
		Topics:       e.Topics,
		IsBackdated:  e.IsBackdated,
		Reason:       e.BackdateReason,
		Notes:        e.Notes,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
		CreatedBy:    e.CreatedBy.String(),
	}
	if e.InTime != nil {
		dto.InTime = e.InTime.String()
	}
	if e.OutTime != nil {
		dto.OutTime = e.OutTime.String()
	}
	return dto
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST ASSIGNMENTS QUERY
// Scoped assignment listing. State=completed is the ready-for-transfer
// view: assignments closed by a completed session and awaiting handover.
// ══════════════════════════════════════════════════════════════════════════════

// ListAssignmentsQuery contains the filter for an assignment listing.
type ListAssignmentsQuery struct {
	// Ctx is the resolved authorization context of the caller.
	Ctx *rbac.Context

	State     directory.AssignmentState
	FacultyID string
	StudentID string

	Limit  int
	Offset int
}

// Validate checks the query.
func (q *ListAssignmentsQuery) Validate() error {
	if q.Ctx == nil {
		return shared.NewDomainError("query", "ListAssignments", shared.ErrUnauthorized, "missing authorization context")
	}
	if q.State != "" && !q.State.IsValid() {
		return shared.NewDomainError("query", "ListAssignments", shared.ErrValidation, "unknown assignment state")
	}
	return nil
}

// AssignmentDTO is the wire shape of one assignment.
type AssignmentDTO struct {
	ID          string `json:"id"`
	CenterID    string `json:"center_id"`
	StudentID   string `json:"student_id"`
	SubjectID   string `json:"subject_id"`
	FacultyID   string `json:"faculty_id"`
	State       string `json:"state"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// ListAssignmentsResult contains the listed assignments.
type ListAssignmentsResult struct {
	CenterID    shared.TenantID `json:"center_id"`
	Assignments []AssignmentDTO `json:"assignments"`
}

// ListAssignmentsHandler handles assignment listings.
type ListAssignmentsHandler struct {
	assignments directory.AssignmentRepository
}

// NewListAssignmentsHandler creates a new handler.
func NewListAssignmentsHandler(assignments directory.AssignmentRepository) *ListAssignmentsHandler {
	return &ListAssignmentsHandler{assignments: assignments}
}

// Handle executes the query.
func (h *ListAssignmentsHandler) Handle(ctx context.Context, query ListAssignmentsQuery) (*ListAssignmentsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	scope, err := query.Ctx.Scope()
	if err != nil {
		return nil, err
	}

	assignments, err := h.assignments.ListByCenter(ctx, scope, directory.AssignmentFilter{
		State:     query.State,
		FacultyID: query.FacultyID,
		StudentID: query.StudentID,
	}, shared.ListOptions{Limit: query.Limit, Offset: query.Offset}.Normalize())
	if err != nil {
		return nil, err
	}

	result := &ListAssignmentsResult{CenterID: scope, Assignments: make([]AssignmentDTO, 0, len(assignments))}
	for _, a := range assignments {
		dto := AssignmentDTO{
			ID:        a.ID.String(),
			CenterID:  a.CenterID.String(),
			StudentID: a.StudentID,
			SubjectID: a.SubjectID,
			FacultyID: a.FacultyID,
			State:     a.State.String(),
			StartedAt: a.StartedAt.Format(time.RFC3339),
		}
		if a.CompletedAt != nil {
			dto.CompletedAt = a.CompletedAt.Format(time.RFC3339)
		}
		result.Assignments = append(result.Assignments, dto)
	}
	return result, nil
}
