package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type memEventStore struct {
	events []*attendance.Event

	lastDays map[shared.AssignmentID]shared.Day
	topics   map[shared.AssignmentID]int
}

func (s *memEventStore) Append(_ context.Context, e *attendance.Event) error {
	s.events = append(s.events, e)
	return nil
}

func (s *memEventStore) GetByID(_ context.Context, id string) (*attendance.Event, error) {
	for _, e := range s.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, attendance.ErrEventNotFound
}

func (s *memEventStore) ListByCenter(_ context.Context, centerID shared.TenantID, filter attendance.Filter, opts shared.ListOptions) ([]*attendance.Event, error) {
	var out []*attendance.Event
	for _, e := range s.events {
		if e.CenterID != centerID {
			continue
		}
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.FacultyID != "" && e.FacultyID != filter.FacultyID {
			continue
		}
		if !filter.AssignmentID.IsEmpty() && e.AssignmentID != filter.AssignmentID {
			continue
		}
		if !filter.From.IsZero() && e.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.Date.After(filter.To) {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				if e.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, e)
	}
	return pageOf(out, opts), nil
}

func (s *memEventStore) HasOverlap(_ context.Context, _ shared.AssignmentID, _ shared.Day, _, _ shared.ClockTime) (bool, error) {
	return false, nil
}

func (s *memEventStore) LastEventDays(_ context.Context, _ shared.TenantID) (map[shared.AssignmentID]shared.Day, error) {
	return s.lastDays, nil
}

func (s *memEventStore) CoveredTopicCounts(_ context.Context, _ shared.TenantID) (map[shared.AssignmentID]int, error) {
	return s.topics, nil
}

type memAssignmentRepo struct {
	byCenter map[shared.TenantID][]*directory.Assignment
}

func (r *memAssignmentRepo) Create(_ context.Context, _ *directory.Assignment) error { return nil }

func (r *memAssignmentRepo) GetByID(_ context.Context, id shared.AssignmentID) (*directory.Assignment, error) {
	for _, list := range r.byCenter {
		for _, a := range list {
			if a.ID == id {
				return a, nil
			}
		}
	}
	return nil, directory.ErrAssignmentNotFound
}

func (r *memAssignmentRepo) ListByCenter(_ context.Context, centerID shared.TenantID, filter directory.AssignmentFilter, opts shared.ListOptions) ([]*directory.Assignment, error) {
	var out []*directory.Assignment
	for _, a := range r.byCenter[centerID] {
		if filter.State != "" && a.State != filter.State {
			continue
		}
		if filter.FacultyID != "" && a.FacultyID != filter.FacultyID {
			continue
		}
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		out = append(out, a)
	}
	return pageOf(out, opts), nil
}

// pageOf applies normalized limit and offset the way the real stores do.
func pageOf[T any](rows []T, opts shared.ListOptions) []T {
	opts = opts.Normalize()
	if opts.Offset >= len(rows) {
		return nil
	}
	rows = rows[opts.Offset:]
	if len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	return rows
}

func (r *memAssignmentRepo) Update(_ context.Context, _ *directory.Assignment) error { return nil }

func (r *memAssignmentRepo) Archive(_ context.Context, _ shared.AssignmentID, _ shared.ActorID) error {
	return nil
}

type memSubjectRepo struct {
	subjects map[string]*directory.Subject
}

func (r *memSubjectRepo) Create(_ context.Context, _ *directory.Subject) error { return nil }

func (r *memSubjectRepo) GetByID(_ context.Context, id string) (*directory.Subject, error) {
	if s, ok := r.subjects[id]; ok {
		return s, nil
	}
	return nil, directory.ErrSubjectNotFound
}

func (r *memSubjectRepo) List(_ context.Context, _ shared.ListOptions) ([]*directory.Subject, error) {
	return nil, nil
}

func (r *memSubjectRepo) Archive(_ context.Context, _ string, _ shared.ActorID) error { return nil }

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

const (
	healthCenter = shared.TenantID("11111111-1111-4111-8111-111111111111")
	staleAssign  = shared.AssignmentID("aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa")
	freshAssign  = shared.AssignmentID("bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb")
	silentAssign = shared.AssignmentID("cccccccc-cccc-4ccc-8ccc-cccccccccccc")
)

// Evaluated on 2025-11-10, matching the at-risk scenario dates.
var healthNow = time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

func mustDay(t *testing.T, s string) shared.Day {
	t.Helper()
	d, err := shared.ParseDay(s)
	require.NoError(t, err)
	return d
}

func makeAssignment(t *testing.T, id shared.AssignmentID, startedAt time.Time) *directory.Assignment {
	t.Helper()
	a, err := directory.NewAssignment(directory.NewAssignmentParams{
		ID:        id,
		CenterID:  healthCenter,
		StudentID: "student-" + string(id[:4]),
		SubjectID: "subject-1",
		FacultyID: "faculty-1",
		StartedAt: startedAt,
	})
	require.NoError(t, err)
	return a
}

func headContext() *rbac.Context {
	return &rbac.Context{
		ActorID:      shared.ActorID("33333333-3333-4333-8333-333333333333"),
		Role:         directory.RoleCenterHead,
		BoundCenter:  healthCenter,
		ActiveCenter: healthCenter,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestAssignmentHealth_AtRiskWindow(t *testing.T) {
	started := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	events := &memEventStore{
		lastDays: map[shared.AssignmentID]shared.Day{
			// 16 days before evaluation: at risk.
			staleAssign: mustDay(t, "2025-10-25"),
			// 5 days before evaluation: healthy.
			freshAssign: mustDay(t, "2025-11-05"),
		},
		topics: map[shared.AssignmentID]int{},
	}
	assignments := &memAssignmentRepo{byCenter: map[shared.TenantID][]*directory.Assignment{
		healthCenter: {
			makeAssignment(t, staleAssign, started),
			makeAssignment(t, freshAssign, started),
			makeAssignment(t, silentAssign, started),
		},
	}}
	subject, err := directory.NewSubject("subject-1", "Mathematics", 40)
	require.NoError(t, err)
	subjects := &memSubjectRepo{subjects: map[string]*directory.Subject{"subject-1": subject}}

	h := NewAssignmentHealthHandler(events, assignments, subjects).
		WithClock(func() time.Time { return healthNow })

	result, err := h.Handle(context.Background(), AssignmentHealthQuery{
		Ctx:           headContext(),
		DaysThreshold: 7,
	})
	require.NoError(t, err)

	atRisk := make(map[shared.AssignmentID]AssignmentHealthItem)
	for _, item := range result.AtRisk {
		atRisk[item.AssignmentID] = item
	}

	require.Contains(t, atRisk, staleAssign)
	assert.Equal(t, 16, atRisk[staleAssign].DaysSinceEvent)
	assert.NotContains(t, atRisk, freshAssign)

	// Never-taught assignments are at risk too.
	require.Contains(t, atRisk, silentAssign)
	assert.Equal(t, -1, atRisk[silentAssign].DaysSinceEvent)
}

func TestAssignmentHealth_CoverageLists(t *testing.T) {
	longOpen := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	events := &memEventStore{
		lastDays: map[shared.AssignmentID]shared.Day{
			staleAssign: mustDay(t, "2025-11-09"),
			freshAssign: mustDay(t, "2025-11-09"),
		},
		topics: map[shared.AssignmentID]int{
			// 4/40 topics after ten months: extended enrollment.
			staleAssign: 4,
			// 36/40 topics: nearing completion.
			freshAssign: 36,
		},
	}
	assignments := &memAssignmentRepo{byCenter: map[shared.TenantID][]*directory.Assignment{
		healthCenter: {
			makeAssignment(t, staleAssign, longOpen),
			makeAssignment(t, freshAssign, recent),
		},
	}}
	subject, err := directory.NewSubject("subject-1", "Mathematics", 40)
	require.NoError(t, err)
	subjects := &memSubjectRepo{subjects: map[string]*directory.Subject{"subject-1": subject}}

	h := NewAssignmentHealthHandler(events, assignments, subjects).
		WithClock(func() time.Time { return healthNow })

	result, err := h.Handle(context.Background(), AssignmentHealthQuery{
		Ctx:             headContext(),
		DaysThreshold:   7,
		MonthsThreshold: 6,
		CompletionPct:   80,
	})
	require.NoError(t, err)

	require.Len(t, result.ExtendedEnrollment, 1)
	assert.Equal(t, staleAssign, result.ExtendedEnrollment[0].AssignmentID)
	assert.Equal(t, 10, result.ExtendedEnrollment[0].CoveragePct)

	require.Len(t, result.NearingCompletion, 1)
	assert.Equal(t, freshAssign, result.NearingCompletion[0].AssignmentID)
	assert.Equal(t, 90, result.NearingCompletion[0].CoveragePct)
}

func TestAssignmentHealth_MasterNeedsActiveCenter(t *testing.T) {
	h := NewAssignmentHealthHandler(&memEventStore{}, &memAssignmentRepo{}, &memSubjectRepo{})

	master := &rbac.Context{
		ActorID: shared.ActorID("33333333-3333-4333-8333-333333333333"),
		Role:    directory.RoleMaster,
	}

	_, err := h.Handle(context.Background(), AssignmentHealthQuery{Ctx: master})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}
