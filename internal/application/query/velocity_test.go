package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

type memStudentRepo struct {
	students map[string]*directory.Student
}

func (r *memStudentRepo) Create(_ context.Context, _ *directory.Student) error { return nil }

func (r *memStudentRepo) GetByID(_ context.Context, id string) (*directory.Student, error) {
	if s, ok := r.students[id]; ok {
		return s, nil
	}
	return nil, directory.ErrStudentNotFound
}

func (r *memStudentRepo) ListByCenter(_ context.Context, _ shared.TenantID, _ shared.ListOptions) ([]*directory.Student, error) {
	return nil, nil
}

func (r *memStudentRepo) Archive(_ context.Context, _ string, _ shared.ActorID) error { return nil }

func presentEvent(t *testing.T, id, date, in, out string, topics []string) *attendance.Event {
	t.Helper()
	inC, err := shared.ParseClockTime(in)
	require.NoError(t, err)
	outC, err := shared.ParseClockTime(out)
	require.NoError(t, err)

	e, err := attendance.NewEvent(attendance.NewEventParams{
		ID:           id,
		AssignmentID: staleAssign,
		CenterID:     healthCenter,
		StudentID:    "student-1",
		FacultyID:    "faculty-1",
		Date:         mustDay(t, date),
		Today:        mustDay(t, date),
		Status:       attendance.StatusPresent,
		InTime:       &inC,
		OutTime:      &outC,
		Topics:       topics,
		CreatedBy:    shared.ActorID("33333333-3333-4333-8333-333333333333"),
		CreatedAt:    healthNow,
	})
	require.NoError(t, err)
	return e
}

func TestAttendanceVelocity(t *testing.T) {
	events := &memEventStore{events: []*attendance.Event{
		presentEvent(t, "e1", "2025-11-03", "10:00", "11:00", nil),
		presentEvent(t, "e2", "2025-11-05", "10:00", "11:30", nil),
		presentEvent(t, "e3", "2025-11-07", "14:00", "15:00", nil),
	}}

	h := NewAttendanceVelocityHandler(events).WithClock(func() time.Time { return healthNow })

	result, err := h.Handle(context.Background(), AttendanceVelocityQuery{
		Ctx:        headContext(),
		WindowDays: 14,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Sessions)
	assert.InDelta(t, 1.5, result.SessionsPerWeek, 0.001)
	assert.InDelta(t, 70.0, result.AvgDurationMinutes, 0.001)
	assert.InDelta(t, 3.5, result.TotalHours, 0.001)
}

func TestAttendanceVelocity_AggregatesAcrossPages(t *testing.T) {
	// More sessions than one store page holds. The projection must keep
	// reading until the ledger is exhausted instead of stopping at the
	// first page.
	count := shared.MaxListLimit + 100
	all := make([]*attendance.Event, 0, count)
	for i := 0; i < count; i++ {
		all = append(all, presentEvent(t, fmt.Sprintf("e%d", i), "2025-11-03", "10:00", "11:00", nil))
	}
	events := &memEventStore{events: all}

	h := NewAttendanceVelocityHandler(events).WithClock(func() time.Time { return healthNow })

	result, err := h.Handle(context.Background(), AttendanceVelocityQuery{
		Ctx:        headContext(),
		WindowDays: 14,
	})
	require.NoError(t, err)

	assert.Equal(t, count, result.Sessions)
	assert.InDelta(t, 60.0, result.AvgDurationMinutes, 0.001)
	assert.InDelta(t, float64(count), result.TotalHours, 0.001)
}

func TestLearningVelocity(t *testing.T) {
	events := &memEventStore{events: []*attendance.Event{
		presentEvent(t, "e1", "2025-11-03", "10:00", "11:00", []string{"t1", "t2"}),
		presentEvent(t, "e2", "2025-11-05", "10:00", "11:00", []string{"t3"}),
	}}

	student, err := directory.NewStudent("student-1", healthCenter, "Aisha Noor", healthNow.AddDate(0, -3, 0))
	require.NoError(t, err)
	students := &memStudentRepo{students: map[string]*directory.Student{"student-1": student}}

	h := NewLearningVelocityHandler(events, students).WithClock(func() time.Time { return healthNow })

	result, err := h.Handle(context.Background(), LearningVelocityQuery{
		Ctx:       headContext(),
		StudentID: "student-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sessions)
	assert.Equal(t, 3, result.TopicsCovered)
	assert.Equal(t, 120, result.TotalMinutes)
	assert.InDelta(t, 1.5, result.TopicsPerSession, 0.001)
	assert.InDelta(t, 40.0, result.MinutesPerTopic, 0.001)
}

func TestLearningVelocity_OutOfScopeStudentReadsAsNotFound(t *testing.T) {
	otherCenter := shared.TenantID("22222222-2222-4222-8222-222222222222")
	student, err := directory.NewStudent("student-9", otherCenter, "Omar Said", healthNow)
	require.NoError(t, err)
	students := &memStudentRepo{students: map[string]*directory.Student{"student-9": student}}

	h := NewLearningVelocityHandler(&memEventStore{}, students)

	_, err = h.Handle(context.Background(), LearningVelocityQuery{
		Ctx:       headContext(),
		StudentID: "student-9",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.False(t, shared.IsPermissionDenied(err))
}

func TestFacultyPerformance(t *testing.T) {
	e1 := presentEvent(t, "e1", "2025-11-03", "10:00", "11:00", nil)
	e2 := presentEvent(t, "e2", "2025-11-04", "10:00", "12:00", nil)
	e2.StudentID = "student-2"
	e3 := presentEvent(t, "e3", "2025-11-05", "10:00", "11:00", nil)
	e3.FacultyID = "faculty-2"

	events := &memEventStore{events: []*attendance.Event{e1, e2, e3}}

	h := NewFacultyPerformanceHandler(events, &memFacultyRepo{}).
		WithClock(func() time.Time { return healthNow })

	result, err := h.Handle(context.Background(), FacultyPerformanceQuery{Ctx: headContext()})
	require.NoError(t, err)

	require.Len(t, result.Faculty, 2)
	top := result.Faculty[0]
	assert.Equal(t, "faculty-1", top.FacultyID)
	assert.Equal(t, 2, top.Sessions)
	assert.Equal(t, 180, top.TotalMinutes)
	assert.Equal(t, 2, top.DistinctStudents)
	assert.InDelta(t, 90.0, top.AvgDuration, 0.001)
}

type memFacultyRepo struct{}

func (r *memFacultyRepo) Create(_ context.Context, _ *directory.Faculty) error { return nil }

func (r *memFacultyRepo) GetByID(_ context.Context, _ string) (*directory.Faculty, error) {
	return nil, directory.ErrFacultyNotFound
}

func (r *memFacultyRepo) GetByActorID(_ context.Context, _ shared.ActorID) (*directory.Faculty, error) {
	return nil, directory.ErrFacultyNotFound
}

func (r *memFacultyRepo) ListByCenter(_ context.Context, _ shared.TenantID, _ shared.ListOptions) ([]*directory.Faculty, error) {
	return nil, nil
}

func (r *memFacultyRepo) Archive(_ context.Context, _ string, _ shared.ActorID) error { return nil }
