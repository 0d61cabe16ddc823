package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

const testActorID = shared.ActorID("33333333-3333-4333-8333-333333333333")

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, expiresAt, err := tm.Issue(testActorID, "center_head")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	parsed, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, testActorID, parsed)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", time.Hour).Issue(testActorID, "master")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour).Parse(token)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	tm.ttl = -time.Minute

	token, _, err := tm.Issue(testActorID, "faculty")
	require.NoError(t, err)

	_, err = tm.Parse(token)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestTokenManager_Garbage(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		_, err := tm.Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			"not found",
			shared.NewDomainError("directory", "GetByID", shared.ErrNotFound, "student not found"),
			http.StatusNotFound, "NOT_FOUND",
		},
		{
			"unauthorized",
			shared.NewDomainError("http", "Parse", shared.ErrUnauthorized, "invalid token"),
			http.StatusUnauthorized, "UNAUTHORIZED",
		},
		{
			"permission denied",
			shared.NewDomainError("rbac", "SwitchTenant", shared.ErrPermissionDenied, "only master"),
			http.StatusForbidden, "FORBIDDEN",
		},
		{
			"validation",
			shared.NewDomainError("attendance", "Validate", shared.ErrValidation, "present requires times"),
			http.StatusUnprocessableEntity, "VALIDATION_ERROR",
		},
		{
			"future date",
			shared.NewDomainError("attendance", "Validate", shared.ErrFutureDate, "date in the future"),
			http.StatusUnprocessableEntity, "VALIDATION_ERROR",
		},
		{
			"overlap conflict",
			shared.NewDomainError("attendance", "Validate", shared.ErrConflict, "overlapping session"),
			http.StatusConflict, "CONFLICT",
		},
		{
			"state transition",
			shared.NewDomainError("directory", "Complete", shared.ErrStateTransition, "already completed"),
			http.StatusConflict, "CONFLICT",
		},
		{
			"no active center",
			shared.NewDomainError("rbac", "Context", shared.ErrInvalidState, "no active center selected"),
			http.StatusConflict, "INVALID_STATE",
		},
		{
			"audit write failure",
			shared.NewDomainError("audit", "Record", shared.ErrAuditWrite, "audit store unavailable"),
			http.StatusInternalServerError, "INTERNAL_ERROR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classifyError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
