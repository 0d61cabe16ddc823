package query

import (
	"context"
	"sort"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FACULTY PERFORMANCE QUERY
// Per-faculty aggregates over the ledger: sessions taught, time spent, and
// how many distinct students each faculty member worked with.
// ══════════════════════════════════════════════════════════════════════════════

// FacultyPerformanceQuery contains the parameters for a performance read.
type FacultyPerformanceQuery struct {
	// Ctx is the resolved authorization context of the caller.
	Ctx *rbac.Context

	// WindowDays is the trailing window; defaults to 90, capped at 365.
	WindowDays int
}

// Validate checks and normalizes the query.
func (q *FacultyPerformanceQuery) Validate() error {
	if q.Ctx == nil {
		return shared.NewDomainError("query", "FacultyPerformance", shared.ErrUnauthorized, "missing authorization context")
	}
	if q.WindowDays <= 0 {
		q.WindowDays = 90
	}
	if q.WindowDays > 365 {
		q.WindowDays = 365
	}
	return nil
}

// FacultyPerformanceItem is one faculty member's aggregate.
type FacultyPerformanceItem struct {
	FacultyID string `json:"faculty_id"`
	FullName  string `json:"full_name,omitempty"`

	Sessions         int     `json:"sessions"`
	TotalMinutes     int     `json:"total_minutes"`
	AvgDuration      float64 `json:"avg_duration_minutes"`
	DistinctStudents int     `json:"distinct_students"`
}

// FacultyPerformanceResult contains the per-faculty aggregates, busiest
// first.
type FacultyPerformanceResult struct {
	CenterID   shared.TenantID          `json:"center_id"`
	WindowDays int                      `json:"window_days"`
	Faculty    []FacultyPerformanceItem `json:"faculty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// FacultyPerformanceHandler handles faculty performance queries.
type FacultyPerformanceHandler struct {
	events  attendance.EventStore
	faculty directory.FacultyRepository

	now func() time.Time
}

// NewFacultyPerformanceHandler creates a new handler.
func NewFacultyPerformanceHandler(events attendance.EventStore, faculty directory.FacultyRepository) *FacultyPerformanceHandler {
	return &FacultyPerformanceHandler{
		events:  events,
		faculty: faculty,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *FacultyPerformanceHandler) WithClock(now func() time.Time) *FacultyPerformanceHandler {
	h.now = now
	return h
}

// Handle executes the query.
func (h *FacultyPerformanceHandler) Handle(ctx context.Context, query FacultyPerformanceQuery) (*FacultyPerformanceResult, error) {
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
			From:     today.AddDays(-query.WindowDays),
			To:       today,
			Statuses: []attendance.Status{attendance.StatusPresent},
		}, opts)
	})
	if err != nil {
		return nil, err
	}

	type agg struct {
		sessions int
		minutes  int
		students map[string]struct{}
	}
	byFaculty := make(map[string]*agg)

	for _, e := range events {
		a := byFaculty[e.FacultyID]
		if a == nil {
			a = &agg{students: make(map[string]struct{})}
			byFaculty[e.FacultyID] = a
		}
		a.sessions++
		if e.DurationMinutes != nil {
			a.minutes += *e.DurationMinutes
		}
		a.students[e.StudentID] = struct{}{}
	}

	names := make(map[string]string)
	staff, err := listAll(func(opts shared.ListOptions) ([]*directory.Faculty, error) {
		return h.faculty.ListByCenter(ctx, scope, opts)
	})
	if err != nil {
		return nil, err
	}
	for _, f := range staff {
		names[f.ID] = f.FullName
	}

	result := &FacultyPerformanceResult{
		CenterID:    scope,
		WindowDays:  query.WindowDays,
		GeneratedAt: now,
	}
	for id, a := range byFaculty {
		item := FacultyPerformanceItem{
			FacultyID:        id,
			FullName:         names[id],
			Sessions:         a.sessions,
			TotalMinutes:     a.minutes,
			DistinctStudents: len(a.students),
		}
		if a.sessions > 0 {
			item.AvgDuration = float64(a.minutes) / float64(a.sessions)
		}
		result.Faculty = append(result.Faculty, item)
	}

	sort.Slice(result.Faculty, func(i, j int) bool {
		if result.Faculty[i].Sessions != result.Faculty[j].Sessions {
			return result.Faculty[i].Sessions > result.Faculty[j].Sessions
		}
		return result.Faculty[i].FacultyID < result.Faculty[j].FacultyID
	})

	return result, nil
}
