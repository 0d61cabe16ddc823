package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

type fakeSessionStore struct {
	active map[shared.ActorID]shared.TenantID
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{active: make(map[shared.ActorID]shared.TenantID)}
}

func (s *fakeSessionStore) SetActiveTenant(_ context.Context, actorID shared.ActorID, tenantID shared.TenantID) error {
	s.active[actorID] = tenantID
	return nil
}

func (s *fakeSessionStore) GetActiveTenant(_ context.Context, actorID shared.ActorID) (shared.TenantID, error) {
	if t, ok := s.active[actorID]; ok {
		return t, nil
	}
	return "", rbac.ErrSessionNotFound
}

func (s *fakeSessionStore) Clear(_ context.Context, actorID shared.ActorID) error {
	delete(s.active, actorID)
	return nil
}

func masterCtx() *rbac.Context {
	return &rbac.Context{ActorID: actorID, Role: directory.RoleMaster}
}

func newSwitchHandler(t *testing.T) (*SwitchTenantHandler, *fakeTxFactory, *fakeSessionStore, *fakeBus) {
	t.Helper()
	factory := newFakeTxFactory()
	center, err := directory.NewCenter(centerID, "Downtown Center")
	require.NoError(t, err)
	factory.centers[centerID] = center
	other, err := directory.NewCenter(otherCenter, "Riverside Center")
	require.NoError(t, err)
	factory.centers[otherCenter] = other

	sessions := newFakeSessionStore()
	bus := &fakeBus{}
	h := NewSwitchTenantHandler(factory, sessions, bus).WithClock(fixedClock)
	return h, factory, sessions, bus
}

func TestSwitchTenant_FirstSelection(t *testing.T) {
	h, factory, sessions, bus := newSwitchHandler(t)

	result, err := h.Handle(context.Background(), SwitchTenantCommand{
		Ctx:      masterCtx(),
		TenantID: centerID,
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)

	assert.Equal(t, centerID, result.ActiveTenant)
	assert.True(t, result.Previous.IsEmpty())
	assert.Equal(t, centerID, sessions.active[actorID])

	require.Len(t, factory.auditTrail, 1)
	entry := factory.auditTrail[0]
	assert.Equal(t, audit.ActionAccess, entry.Action)
	assert.Equal(t, "center", entry.EntityType)
	assert.Equal(t, centerID, entry.TenantID)
	assert.Equal(t, "10.0.0.1", entry.IP)

	require.Len(t, bus.published, 1)
	assert.Equal(t, shared.EventTenantSwitched, bus.published[0].EventType())
}

func TestSwitchTenant_ReportsPreviousCenter(t *testing.T) {
	h, _, sessions, _ := newSwitchHandler(t)
	sessions.active[actorID] = centerID

	result, err := h.Handle(context.Background(), SwitchTenantCommand{
		Ctx:      masterCtx(),
		TenantID: otherCenter,
	})
	require.NoError(t, err)

	assert.Equal(t, otherCenter, result.ActiveTenant)
	assert.Equal(t, centerID, result.Previous)
	assert.Equal(t, otherCenter, sessions.active[actorID])
}

func TestSwitchTenant_BoundRolesDenied(t *testing.T) {
	h, factory, sessions, _ := newSwitchHandler(t)

	for _, ctx := range []*rbac.Context{headCtx(), facultyCtx()} {
		_, err := h.Handle(context.Background(), SwitchTenantCommand{
			Ctx:      ctx,
			TenantID: otherCenter,
		})
		assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	}
	assert.Empty(t, factory.auditTrail)
	assert.Empty(t, sessions.active)
}

func TestSwitchTenant_UnknownCenter(t *testing.T) {
	h, _, sessions, bus := newSwitchHandler(t)
	sessions.active[actorID] = centerID

	_, err := h.Handle(context.Background(), SwitchTenantCommand{
		Ctx:      masterCtx(),
		TenantID: shared.TenantID("99999999-9999-4999-8999-999999999999"),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// The existing selection survives the failed switch.
	assert.Equal(t, centerID, sessions.active[actorID])
	assert.Empty(t, bus.published)
}

func TestSwitchTenant_AuditFailureLeavesSessionUntouched(t *testing.T) {
	h, factory, sessions, _ := newSwitchHandler(t)
	factory.auditFails = true

	_, err := h.Handle(context.Background(), SwitchTenantCommand{
		Ctx:      masterCtx(),
		TenantID: centerID,
	})
	assert.ErrorIs(t, err, shared.ErrAuditWrite)
	assert.Empty(t, sessions.active)
	assert.Empty(t, factory.auditTrail)
}

func TestSwitchTenant_InvalidCenterID(t *testing.T) {
	h, _, _, _ := newSwitchHandler(t)

	_, err := h.Handle(context.Background(), SwitchTenantCommand{
		Ctx:      masterCtx(),
		TenantID: shared.TenantID("not-a-uuid"),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}
