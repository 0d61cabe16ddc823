package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

// memAuditReader serves a fixed snapshot chain, newest first per entity.
type memAuditReader struct {
	entries []*audit.Entry
}

func (r *memAuditReader) List(_ context.Context, tenantID shared.TenantID, filter audit.Filter, opts shared.ListOptions) ([]*audit.Entry, error) {
	opts = opts.Normalize()

	var out []*audit.Entry
	for _, e := range r.entries {
		if e.TenantID != tenantID {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if !filter.ActorID.IsEmpty() && e.ActorID != filter.ActorID {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, e.Action) {
			continue
		}
		if !filter.From.IsZero() && e.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.Timestamp.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func containsAction(actions []audit.Action, a audit.Action) bool {
	for _, action := range actions {
		if action == a {
			return true
		}
	}
	return false
}

func (r *memAuditReader) StateAt(_ context.Context, entityType, entityID string, t time.Time) (audit.State, error) {
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID && !e.Timestamp.After(t) && e.Action.IsMutation() {
			return e.After, nil
		}
	}
	return nil, audit.ErrNoStateBefore
}

func (r *memAuditReader) CountForEntity(_ context.Context, entityType, entityID string) (int, error) {
	count := 0
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			count++
		}
	}
	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

var (
	chainActor = shared.ActorID("33333333-3333-4333-8333-333333333333")
	chainT1    = time.Date(2025, 10, 1, 10, 0, 0, 0, time.UTC)
	chainT2    = time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	chainT3    = time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
)

func chainEntry(t *testing.T, id string, action audit.Action, ts time.Time, after audit.State) *audit.Entry {
	t.Helper()
	e, err := audit.NewEntry(audit.NewEntryParams{
		ID:         id,
		ActorID:    chainActor,
		Action:     action,
		EntityType: "student",
		EntityID:   "student-1",
		TenantID:   healthCenter,
		After:      after,
		Timestamp:  ts,
	})
	require.NoError(t, err)
	return e
}

// studentChain holds three mutations, newest first, the order a reader
// returns them in.
func studentChain(t *testing.T) *memAuditReader {
	t.Helper()
	return &memAuditReader{entries: []*audit.Entry{
		chainEntry(t, "e3", audit.ActionDelete, chainT3, audit.State{"name": "Aliya", "is_deleted": true}),
		chainEntry(t, "e2", audit.ActionUpdate, chainT2, audit.State{"name": "Aliya", "grade": "7"}),
		chainEntry(t, "e1", audit.ActionCreate, chainT1, audit.State{"name": "Aliya"}),
	}}
}

func masterContext(active shared.TenantID) *rbac.Context {
	return &rbac.Context{
		ActorID:      shared.ActorID("44444444-4444-4444-8444-444444444444"),
		Role:         directory.RoleMaster,
		ActiveCenter: active,
	}
}

func facultyContext() *rbac.Context {
	return &rbac.Context{
		ActorID:      chainActor,
		Role:         directory.RoleFaculty,
		BoundCenter:  healthCenter,
		ActiveCenter: healthCenter,
		FacultyID:    "faculty-1",
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RECONSTRUCTION TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestReconstructState_PicksLatestSnapshotAtInstant(t *testing.T) {
	h := NewReconstructStateHandler(studentChain(t))

	tests := []struct {
		name string
		at   time.Time
		want audit.State
	}{
		{"between create and update", chainT1.Add(24 * time.Hour), audit.State{"name": "Aliya"}},
		{"exactly at update", chainT2, audit.State{"name": "Aliya", "grade": "7"}},
		{"after delete", chainT3.Add(time.Hour), audit.State{"name": "Aliya", "is_deleted": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.Handle(context.Background(), ReconstructStateQuery{
				Ctx:        masterContext(""),
				EntityType: "student",
				EntityID:   "student-1",
				At:         tt.at,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.State)
		})
	}
}

func TestReconstructState_BeforeChainStarts(t *testing.T) {
	h := NewReconstructStateHandler(studentChain(t))

	_, err := h.Handle(context.Background(), ReconstructStateQuery{
		Ctx:        masterContext(""),
		EntityType: "student",
		EntityID:   "student-1",
		At:         chainT1.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReconstructState_FacultyDenied(t *testing.T) {
	h := NewReconstructStateHandler(studentChain(t))

	_, err := h.Handle(context.Background(), ReconstructStateQuery{
		Ctx:        facultyContext(),
		EntityType: "student",
		EntityID:   "student-1",
	})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestReconstructState_CenterHeadScopedToOwnCenter(t *testing.T) {
	h := NewReconstructStateHandler(studentChain(t))

	result, err := h.Handle(context.Background(), ReconstructStateQuery{
		Ctx:        headContext(),
		EntityType: "student",
		EntityID:   "student-1",
		At:         chainT2,
	})
	require.NoError(t, err)
	assert.Equal(t, audit.State{"name": "Aliya", "grade": "7"}, result.State)

	// Same chain through a head of another center reads as not found.
	otherHead := headContext()
	otherHead.BoundCenter = shared.TenantID("22222222-2222-4222-8222-222222222222")
	otherHead.ActiveCenter = otherHead.BoundCenter

	_, err = h.Handle(context.Background(), ReconstructStateQuery{
		Ctx:        otherHead,
		EntityType: "student",
		EntityID:   "student-1",
		At:         chainT2,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT LISTING TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestListAudit_FiltersByActionAndRange(t *testing.T) {
	h := NewListAuditHandler(studentChain(t))

	result, err := h.Handle(context.Background(), ListAuditQuery{
		Ctx:     headContext(),
		Actions: []audit.Action{audit.ActionUpdate, audit.ActionDelete},
		From:    chainT2,
	})
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, "e3", result.Entries[0].ID)
	assert.Equal(t, "e2", result.Entries[1].ID)
}

func TestListAudit_FacultyDenied(t *testing.T) {
	h := NewListAuditHandler(studentChain(t))

	_, err := h.Handle(context.Background(), ListAuditQuery{Ctx: facultyContext()})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestListAudit_UnknownActionRejected(t *testing.T) {
	h := NewListAuditHandler(studentChain(t))

	_, err := h.Handle(context.Background(), ListAuditQuery{
		Ctx:     headContext(),
		Actions: []audit.Action{"TAMPER"},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestListAudit_MasterWithoutCenterReadsCrossTenant(t *testing.T) {
	reader := studentChain(t)
	crossTenant, err := audit.NewEntry(audit.NewEntryParams{
		ID:         "g1",
		ActorID:    chainActor,
		Action:     audit.ActionCreate,
		EntityType: "subject",
		EntityID:   "subject-1",
		After:      audit.State{"name": "Algebra"},
		Timestamp:  chainT1,
	})
	require.NoError(t, err)
	reader.entries = append(reader.entries, crossTenant)

	h := NewListAuditHandler(reader)

	result, err := h.Handle(context.Background(), ListAuditQuery{Ctx: masterContext("")})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "g1", result.Entries[0].ID)

	// With an active center selected the same master reads that center's
	// chain instead.
	result, err = h.Handle(context.Background(), ListAuditQuery{Ctx: masterContext(healthCenter)})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 3)
}
