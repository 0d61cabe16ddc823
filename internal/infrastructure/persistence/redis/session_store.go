package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION STORE
// Holds the master actor's active-center selection. Bound roles never touch
// this store; their center comes from the actor record. The key carries a
// TTL so a stale selection expires with the working session rather than
// outliving it.
// ══════════════════════════════════════════════════════════════════════════════

const sessionKeyPrefix = "session:active_tenant:"

// DefaultSessionTTL is how long an active-center selection survives without
// a refresh.
const DefaultSessionTTL = 12 * time.Hour

// SessionStore implements rbac.SessionStore over Redis.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a new SessionStore with the default TTL.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, ttl: DefaultSessionTTL}
}

// WithTTL overrides the session TTL.
func (s *SessionStore) WithTTL(ttl time.Duration) *SessionStore {
	s.ttl = ttl
	return s
}

func sessionKey(actorID shared.ActorID) string {
	return sessionKeyPrefix + actorID.String()
}

// SetActiveTenant records the actor's active center selection.
func (s *SessionStore) SetActiveTenant(ctx context.Context, actorID shared.ActorID, tenantID shared.TenantID) error {
	if err := s.client.Set(ctx, sessionKey(actorID), tenantID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("session store: failed to set active tenant: %w", err)
	}
	return nil
}

// GetActiveTenant returns the actor's active center. The read refreshes the
// TTL so an actively used selection does not expire mid-session.
func (s *SessionStore) GetActiveTenant(ctx context.Context, actorID shared.ActorID) (shared.TenantID, error) {
	value, err := s.client.GetEx(ctx, sessionKey(actorID), s.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return "", rbac.ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session store: failed to get active tenant: %w", err)
	}
	return shared.TenantID(value), nil
}

// Clear drops the actor's session state.
func (s *SessionStore) Clear(ctx context.Context, actorID shared.ActorID) error {
	if err := s.client.Del(ctx, sessionKey(actorID)).Err(); err != nil {
		return fmt.Errorf("session store: failed to clear session: %w", err)
	}
	return nil
}
