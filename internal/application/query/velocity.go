// Package query contains read operations (CQRS - Queries). Every projection
// here is computed on demand from the ledger, scoped through the caller's
// authorization context. Nothing is cached or incrementally maintained and
// nothing in this package mutates state.
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
// ATTENDANCE VELOCITY QUERY
// How much teaching is happening: sessions per week, average session length,
// total hours over a trailing window.
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceVelocityQuery contains the parameters for a velocity read.
type AttendanceVelocityQuery struct {
	// Ctx is the resolved authorization context of the caller.
	Ctx *rbac.Context

	// WindowDays is the trailing window; defaults to 30, capped at 365.
	WindowDays int

	// AssignmentID narrows the read to one assignment when non-empty.
	AssignmentID shared.AssignmentID

	// FacultyID narrows the read to one faculty member when non-empty.
	FacultyID string
}

// Validate checks and normalizes the query.
func (q *AttendanceVelocityQuery) Validate() error {
	if q.Ctx == nil {
		return shared.NewDomainError("query", "AttendanceVelocity", shared.ErrUnauthorized, "missing authorization context")
	}
	if q.WindowDays <= 0 {
		q.WindowDays = 30
	}
	if q.WindowDays > 365 {
		q.WindowDays = 365
	}
	return nil
}

// AttendanceVelocityResult contains the computed velocity view.
type AttendanceVelocityResult struct {
	CenterID   shared.TenantID `json:"center_id"`
	WindowDays int             `json:"window_days"`

	// Sessions is the number of present-status events in the window.
	Sessions int `json:"sessions"`

	SessionsPerWeek    float64 `json:"sessions_per_week"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes"`
	TotalHours         float64 `json:"total_hours"`

	GeneratedAt time.Time `json:"generated_at"`
}

// AttendanceVelocityHandler handles attendance velocity queries.
type AttendanceVelocityHandler struct {
	events attendance.EventStore

	now func() time.Time
}

// NewAttendanceVelocityHandler creates a new handler.
func NewAttendanceVelocityHandler(events attendance.EventStore) *AttendanceVelocityHandler {
	return &AttendanceVelocityHandler{
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *AttendanceVelocityHandler) WithClock(now func() time.Time) *AttendanceVelocityHandler {
	h.now = now
	return h
}

// Handle executes the query.
func (h *AttendanceVelocityHandler) Handle(ctx context.Context, query AttendanceVelocityQuery) (*AttendanceVelocityResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	scope, err := query.Ctx.Scope()
	if err != nil {
		return nil, err
	}

	now := h.now()
	today := shared.DayOf(now)

	events, err := listAll(func(opts shared.ListOptions) ([]*attendance.Event, error) {
		return h.events.ListByCenter(ctx, scope, attendance.Filter{
			From:         today.AddDays(-query.WindowDays),
			To:           today,
			AssignmentID: query.AssignmentID,
			FacultyID:    query.FacultyID,
			Statuses:     []attendance.Status{attendance.StatusPresent},
		}, opts)
	})
	if err != nil {
		return nil, err
	}

	result := &AttendanceVelocityResult{
		CenterID:    scope,
		WindowDays:  query.WindowDays,
		GeneratedAt: now,
	}

	totalMinutes := 0
	for _, e := range events {
		if e.DurationMinutes == nil {
			continue
		}
		result.Sessions++
		totalMinutes += *e.DurationMinutes
	}

	if result.Sessions > 0 {
		result.AvgDurationMinutes = float64(totalMinutes) / float64(result.Sessions)
	}
	result.SessionsPerWeek = float64(result.Sessions) * 7 / float64(query.WindowDays)
	result.TotalHours = float64(totalMinutes) / 60

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING VELOCITY QUERY
// How fast one student moves through material: topics per session and
// minutes spent per topic.
// ══════════════════════════════════════════════════════════════════════════════

// LearningVelocityQuery contains the parameters for a learning velocity read.
type LearningVelocityQuery struct {
	// Ctx is the resolved authorization context of the caller.
	Ctx *rbac.Context

	StudentID string
}

// Validate checks the query.
func (q *LearningVelocityQuery) Validate() error {
	if q.Ctx == nil {
		return shared.NewDomainError("query", "LearningVelocity", shared.ErrUnauthorized, "missing authorization context")
	}
	if q.StudentID == "" {
		return shared.NewDomainError("query", "LearningVelocity", shared.ErrEmptyValue, "student ID is required")
	}
	return nil
}

// LearningVelocityResult contains the computed learning view.
type LearningVelocityResult struct {
	StudentID string `json:"student_id"`

	Sessions      int `json:"sessions"`
	TopicsCovered int `json:"topics_covered"`
	TotalMinutes  int `json:"total_minutes"`

	TopicsPerSession float64 `json:"topics_per_session"`
	MinutesPerTopic  float64 `json:"minutes_per_topic"`

	GeneratedAt time.Time `json:"generated_at"`
}

// LearningVelocityHandler handles learning velocity queries.
type LearningVelocityHandler struct {
	events   attendance.EventStore
	students directory.StudentRepository

	now func() time.Time
}

// NewLearningVelocityHandler creates a new handler.
func NewLearningVelocityHandler(events attendance.EventStore, students directory.StudentRepository) *LearningVelocityHandler {
	return &LearningVelocityHandler{
		events:   events,
		students: students,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *LearningVelocityHandler) WithClock(now func() time.Time) *LearningVelocityHandler {
	h.now = now
	return h
}

// Handle executes the query.
func (h *LearningVelocityHandler) Handle(ctx context.Context, query LearningVelocityQuery) (*LearningVelocityResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	student, err := h.students.GetByID(ctx, query.StudentID)
	if err != nil {
		return nil, err
	}
	// Out-of-scope students read as not found.
	if err := query.Ctx.RequireTenant(student.CenterID); err != nil {
		return nil, err
	}

	events, err := listAll(func(opts shared.ListOptions) ([]*attendance.Event, error) {
		return h.events.ListByCenter(ctx, student.CenterID, attendance.Filter{
			StudentID: student.ID,
			Statuses:  []attendance.Status{attendance.StatusPresent},
		}, opts)
	})
	if err != nil {
		return nil, err
	}

	result := &LearningVelocityResult{
		StudentID:   student.ID,
		GeneratedAt: h.now(),
	}

	for _, e := range events {
		result.Sessions++
		result.TopicsCovered += e.TopicCount()
		if e.DurationMinutes != nil {
			result.TotalMinutes += *e.DurationMinutes
		}
	}

	if result.Sessions > 0 {
		result.TopicsPerSession = float64(result.TopicsCovered) / float64(result.Sessions)
	}
	if result.TopicsCovered > 0 {
		result.MinutesPerTopic = float64(result.TotalMinutes) / float64(result.TopicsCovered)
	}

	return result, nil
}
