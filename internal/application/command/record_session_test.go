package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// An in-memory unit of work with commit/rollback semantics: writes land in a
// staging area and only reach the committed maps when the transaction
// function returns nil.
// ══════════════════════════════════════════════════════════════════════════════

type fakeTxFactory struct {
	// committed state
	events      []*attendance.Event
	auditTrail  []*audit.Entry
	assignments map[shared.AssignmentID]*directory.Assignment
	centers     map[shared.TenantID]*directory.Center

	// auditFails forces the audit recorder to fail, for atomicity tests.
	auditFails bool
}

func newFakeTxFactory() *fakeTxFactory {
	return &fakeTxFactory{
		assignments: make(map[shared.AssignmentID]*directory.Assignment),
		centers:     make(map[shared.TenantID]*directory.Center),
	}
}

func (f *fakeTxFactory) WithinTx(_ context.Context, fn func(uow UnitOfWork) error) error {
	staging := &fakeUoW{factory: f}
	if err := fn(staging); err != nil {
		return err
	}
	f.events = append(f.events, staging.newEvents...)
	f.auditTrail = append(f.auditTrail, staging.newAudit...)
	for id, a := range staging.updatedAssignments {
		f.assignments[id] = a
	}
	return nil
}

type fakeUoW struct {
	factory            *fakeTxFactory
	newEvents          []*attendance.Event
	newAudit           []*audit.Entry
	updatedAssignments map[shared.AssignmentID]*directory.Assignment
}

func (u *fakeUoW) Events() attendance.EventStore              { return (*fakeEventStore)(u) }
func (u *fakeUoW) Audit() audit.Recorder                      { return (*fakeAuditRecorder)(u) }
func (u *fakeUoW) Assignments() directory.AssignmentRepository { return (*fakeAssignmentRepo)(u) }
func (u *fakeUoW) Centers() directory.CenterRepository        { return (*fakeCenterRepo)(u) }
func (u *fakeUoW) Students() directory.StudentRepository      { return nil }
func (u *fakeUoW) Faculty() directory.FacultyRepository       { return nil }
func (u *fakeUoW) Subjects() directory.SubjectRepository      { return nil }
func (u *fakeUoW) Actors() directory.ActorRepository          { return nil }

type fakeEventStore fakeUoW

func (s *fakeEventStore) Append(_ context.Context, event *attendance.Event) error {
	s.newEvents = append(s.newEvents, event)
	return nil
}

func (s *fakeEventStore) GetByID(_ context.Context, id string) (*attendance.Event, error) {
	for _, e := range s.factory.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, attendance.ErrEventNotFound
}

func (s *fakeEventStore) ListByCenter(_ context.Context, centerID shared.TenantID, _ attendance.Filter, _ shared.ListOptions) ([]*attendance.Event, error) {
	var out []*attendance.Event
	for _, e := range s.factory.events {
		if e.CenterID == centerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeEventStore) HasOverlap(_ context.Context, assignmentID shared.AssignmentID, date shared.Day, in, out shared.ClockTime) (bool, error) {
	for _, e := range s.factory.events {
		if e.AssignmentID != assignmentID || !e.Date.Equal(date) || e.InTime == nil || e.OutTime == nil {
			continue
		}
		if in.Before(*e.OutTime) && e.InTime.Before(out) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeEventStore) LastEventDays(_ context.Context, _ shared.TenantID) (map[shared.AssignmentID]shared.Day, error) {
	return nil, nil
}

func (s *fakeEventStore) CoveredTopicCounts(_ context.Context, _ shared.TenantID) (map[shared.AssignmentID]int, error) {
	return nil, nil
}

type fakeAuditRecorder fakeUoW

func (r *fakeAuditRecorder) Record(_ context.Context, entry *audit.Entry) error {
	if r.factory.auditFails {
		return shared.WrapError("audit", "Record", shared.ErrAuditWrite, "audit store unavailable", nil)
	}
	r.newAudit = append(r.newAudit, entry)
	return nil
}

type fakeAssignmentRepo fakeUoW

func (r *fakeAssignmentRepo) Create(_ context.Context, _ *directory.Assignment) error { return nil }

func (r *fakeAssignmentRepo) GetByID(_ context.Context, id shared.AssignmentID) (*directory.Assignment, error) {
	if a, ok := r.factory.assignments[id]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, directory.ErrAssignmentNotFound
}

func (r *fakeAssignmentRepo) ListByCenter(_ context.Context, _ shared.TenantID, _ directory.AssignmentFilter, _ shared.ListOptions) ([]*directory.Assignment, error) {
	return nil, nil
}

func (r *fakeAssignmentRepo) Update(_ context.Context, a *directory.Assignment) error {
	if r.updatedAssignments == nil {
		r.updatedAssignments = make(map[shared.AssignmentID]*directory.Assignment)
	}
	r.updatedAssignments[a.ID] = a
	return nil
}

func (r *fakeAssignmentRepo) Archive(_ context.Context, _ shared.AssignmentID, _ shared.ActorID) error {
	return nil
}

type fakeCenterRepo fakeUoW

func (r *fakeCenterRepo) Create(_ context.Context, _ *directory.Center) error { return nil }

func (r *fakeCenterRepo) GetByID(_ context.Context, id shared.TenantID) (*directory.Center, error) {
	if c, ok := r.factory.centers[id]; ok {
		return c, nil
	}
	return nil, directory.ErrCenterNotFound
}

func (r *fakeCenterRepo) List(_ context.Context, _ shared.ListOptions) ([]*directory.Center, error) {
	return nil, nil
}

func (r *fakeCenterRepo) Archive(_ context.Context, _ shared.TenantID, _ shared.ActorID) error {
	return nil
}

type fakeBus struct {
	published []shared.Event
}

func (b *fakeBus) Publish(_ context.Context, event shared.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *fakeBus) Subscribe(_ shared.EventType, _ shared.EventHandler) {}

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

const (
	centerID     = shared.TenantID("11111111-1111-4111-8111-111111111111")
	otherCenter  = shared.TenantID("22222222-2222-4222-8222-222222222222")
	actorID      = shared.ActorID("33333333-3333-4333-8333-333333333333")
	assignmentID = shared.AssignmentID("44444444-4444-4444-8444-444444444444")
)

var writeTime = time.Date(2025, 11, 1, 11, 35, 0, 0, time.UTC)

func fixedClock() time.Time { return writeTime }

func newTestAssignment(t *testing.T) *directory.Assignment {
	t.Helper()
	a, err := directory.NewAssignment(directory.NewAssignmentParams{
		ID:        assignmentID,
		CenterID:  centerID,
		StudentID: "student-1",
		SubjectID: "subject-1",
		FacultyID: "faculty-1",
		StartedAt: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return a
}

func facultyCtx() *rbac.Context {
	return &rbac.Context{
		ActorID:      actorID,
		Role:         directory.RoleFaculty,
		BoundCenter:  centerID,
		ActiveCenter: centerID,
		FacultyID:    "faculty-1",
	}
}

func headCtx() *rbac.Context {
	return &rbac.Context{
		ActorID:      actorID,
		Role:         directory.RoleCenterHead,
		BoundCenter:  centerID,
		ActiveCenter: centerID,
	}
}

func newHandler(t *testing.T) (*RecordSessionHandler, *fakeTxFactory, *fakeBus) {
	t.Helper()
	factory := newFakeTxFactory()
	factory.assignments[assignmentID] = newTestAssignment(t)
	bus := &fakeBus{}
	h := NewRecordSessionHandler(factory, attendance.NewValidator(), bus).WithClock(fixedClock)
	return h, factory, bus
}

func mustClock(t *testing.T, s string) *shared.ClockTime {
	t.Helper()
	c, err := shared.ParseClockTime(s)
	require.NoError(t, err)
	return &c
}

func mustDay(t *testing.T, s string) shared.Day {
	t.Helper()
	d, err := shared.ParseDay(s)
	require.NoError(t, err)
	return d
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestRecordSession_PresentStampsDuration(t *testing.T) {
	h, factory, bus := newHandler(t)

	result, err := h.Handle(context.Background(), RecordSessionCommand{
		Ctx:          facultyCtx(),
		AssignmentID: assignmentID,
		Date:         mustDay(t, "2025-11-01"),
		Status:       attendance.StatusPresent,
		InTime:       mustClock(t, "10:00"),
		OutTime:      mustClock(t, "11:30"),
		Topics:       []string{"fractions"},
	})
	require.NoError(t, err)

	require.NotNil(t, result.Event.DurationMinutes)
	assert.Equal(t, 90, *result.Event.DurationMinutes)
	assert.False(t, result.Event.IsBackdated)
	assert.False(t, result.AssignmentCompleted)

	// Exactly one ledger row and one matching CREATE audit entry.
	require.Len(t, factory.events, 1)
	require.Len(t, factory.auditTrail, 1)
	assert.Equal(t, audit.ActionCreate, factory.auditTrail[0].Action)
	assert.Equal(t, result.Event.ID, factory.auditTrail[0].EntityID)
	assert.Equal(t, writeTime, factory.auditTrail[0].Timestamp)

	require.Len(t, bus.published, 1)
	assert.Equal(t, shared.EventSessionRecorded, bus.published[0].EventType())
}

func TestRecordSession_BackdateWithoutReasonRejected(t *testing.T) {
	h, factory, bus := newHandler(t)

	// Ten days before the fixed clock, no reason given.
	_, err := h.Handle(context.Background(), RecordSessionCommand{
		Ctx:          headCtx(),
		AssignmentID: assignmentID,
		Date:         mustDay(t, "2025-10-22"),
		Status:       attendance.StatusAbsent,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "backdate_reason required")

	// Nothing committed, nothing published.
	assert.Empty(t, factory.events)
	assert.Empty(t, factory.auditTrail)
	assert.Empty(t, bus.published)
}

func TestRecordSession_OverlapRejected(t *testing.T) {
	h, factory, _ := newHandler(t)

	first := RecordSessionCommand{
		Ctx:          facultyCtx(),
		AssignmentID: assignmentID,
		Date:         mustDay(t, "2025-11-01"),
		Status:       attendance.StatusPresent,
		InTime:       mustClock(t, "10:00"),
		OutTime:      mustClock(t, "11:30"),
	}
	_, err := h.Handle(context.Background(), first)
	require.NoError(t, err)

	second := first
	second.InTime = mustClock(t, "11:00")
	second.OutTime = mustClock(t, "12:00")
	_, err = h.Handle(context.Background(), second)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConflict)

	// Non-overlapping back-to-back session is fine.
	third := first
	third.InTime = mustClock(t, "11:30")
	third.OutTime = mustClock(t, "12:30")
	_, err = h.Handle(context.Background(), third)
	require.NoError(t, err)

	assert.Len(t, factory.events, 2)
}

func TestRecordSession_CompletedFlipsAssignment(t *testing.T) {
	h, factory, bus := newHandler(t)

	result, err := h.Handle(context.Background(), RecordSessionCommand{
		Ctx:          headCtx(),
		AssignmentID: assignmentID,
		Date:         mustDay(t, "2025-11-01"),
		Status:       attendance.StatusCompleted,
	})
	require.NoError(t, err)
	assert.True(t, result.AssignmentCompleted)

	flipped := factory.assignments[assignmentID]
	assert.Equal(t, directory.AssignmentCompleted, flipped.State)
	require.NotNil(t, flipped.CompletedAt)

	// Ledger CREATE plus assignment UPDATE, both audited.
	require.Len(t, factory.auditTrail, 2)
	assert.Equal(t, audit.ActionCreate, factory.auditTrail[0].Action)
	assert.Equal(t, audit.ActionUpdate, factory.auditTrail[1].Action)
	assert.Equal(t, "active", factory.auditTrail[1].Before["state"])
	assert.Equal(t, "completed", factory.auditTrail[1].After["state"])

	require.Len(t, bus.published, 2)
	assert.Equal(t, shared.EventAssignmentCompleted, bus.published[1].EventType())

	// A second completed write must fail: the assignment is no longer active.
	_, err = h.Handle(context.Background(), RecordSessionCommand{
		Ctx:          headCtx(),
		AssignmentID: assignmentID,
		Date:         mustDay(t, "2025-11-01"),
		Status:       attendance.StatusCompleted,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestRecordSession_OutOfScopeReadsAsNotFound(t *testing.T) {
	h, _, _ := newHandler(t)

	outsider := &rbac.Context{
		ActorID:      actorID,
		Role:         directory.RoleCenterHead,
		BoundCenter:  otherCenter,
		ActiveCenter: otherCenter,
	}

	_, err := h.Handle(context.Background(), RecordSessionCommand{
		Ctx:          outsider,
		AssignmentID: assignmentID,
		Date:         mustDay(t, "2025-11-01"),
		Status:       attendance.StatusAbsent,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.False(t, shared.IsPermissionDenied(err))
}

func TestRecordSession_AuditFailureAbortsEverything(t *testing.T) {
	h, factory, bus := newHandler(t)
	factory.auditFails = true

	_, err := h.Handle(context.Background(), RecordSessionCommand{
		Ctx:          facultyCtx(),
		AssignmentID: assignmentID,
		Date:         mustDay(t, "2025-11-01"),
		Status:       attendance.StatusPresent,
		InTime:       mustClock(t, "10:00"),
		OutTime:      mustClock(t, "11:30"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrAuditWrite)

	// The ledger append rolled back with the audit failure.
	assert.Empty(t, factory.events)
	assert.Empty(t, factory.auditTrail)
	assert.Empty(t, bus.published)
}
