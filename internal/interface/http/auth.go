package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
	"github.com/learnledger/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOKEN MANAGER
// Stateless bearer tokens. The token carries identity only; role and center
// binding are resolved fresh from the directory on every request, so a role
// change takes effect without waiting for token expiry.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// TokenManager issues and verifies JWT bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewTokenManager creates a TokenManager with the given signing secret.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "attendance-hub",
	}
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token for the actor and returns it with its expiry.
func (m *TokenManager) Issue(actorID shared.ActorID, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies a token and returns the actor ID it was issued to.
func (m *TokenManager) Parse(tokenString string) (shared.ActorID, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", shared.NewDomainError("http", "Parse", shared.ErrUnauthorized, "invalid or expired token")
	}
	return shared.NewActorID(claims.Subject)
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// authHandlerFunc is a handler that receives the resolved authorization
// context alongside the request.
type authHandlerFunc func(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context)

// authenticated wraps a handler with bearer-token verification and RBAC
// resolution. The context is rebuilt per request; nothing is cached between
// requests.
func (s *Server) authenticated(next authHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.writeAPIError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header", nil)
			return
		}
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.writeAPIError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authorization header must use the Bearer scheme", nil)
			return
		}

		actorID, err := s.deps.Tokens.Parse(strings.TrimSpace(tokenString))
		if err != nil {
			s.writeAPIError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token", nil)
			return
		}

		authCtx, err := s.deps.Resolver.Resolve(r.Context(), actorID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		next(w, r, authCtx)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN / LOGOUT
// ══════════════════════════════════════════════════════════════════════════════

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	ActorID   string `json:"actor_id"`
	Role      string `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	actor, err := s.deps.Actors.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if shared.IsNotFound(err) {
			// Unknown email reads the same as a wrong password.
			s.writeAPIError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
			return
		}
		s.writeError(w, r, err)
		return
	}
	if actor.IsDeleted {
		s.writeAPIError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
		return
	}
	if err := actor.CheckPassword(req.Password); err != nil {
		s.writeAPIError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
		return
	}

	token, expiresAt, err := s.deps.Tokens.Issue(actor.ID, actor.Role.String())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.recordAccessEntry(r, actor.ID, actor.CenterID, audit.ActionLogin)

	s.writeJSON(w, r, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		ActorID:   actor.ID.String(),
		Role:      actor.Role.String(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	// Logout drops a master's active-center selection; the next login
	// starts unscoped. Tokens themselves stay valid until expiry.
	if s.deps.Sessions != nil && authCtx.IsMaster() {
		if err := s.deps.Sessions.Clear(r.Context(), authCtx.ActorID); err != nil {
			s.log.Warn("failed to clear session on logout",
				logger.ActorID(authCtx.ActorID.String()),
				logger.Err(err),
			)
		}
	}

	s.recordAccessEntry(r, authCtx.ActorID, authCtx.BoundCenter, audit.ActionLogout)
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

// recordAccessEntry writes a LOGIN or LOGOUT audit entry. Access entries are
// not mutations, so a storage failure is logged rather than failing the
// request.
func (s *Server) recordAccessEntry(r *http.Request, actorID shared.ActorID, tenantID shared.TenantID, action audit.Action) {
	if s.deps.Audit == nil {
		return
	}
	entry, err := audit.NewEntry(audit.NewEntryParams{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		EntityType: "actor",
		EntityID:   actorID.String(),
		TenantID:   tenantID,
		Timestamp:  time.Now().UTC(),
		IP:         getClientIP(r),
	})
	if err != nil {
		s.log.Warn("failed to build access audit entry", logger.Err(err))
		return
	}
	if err := s.deps.Audit.Record(r.Context(), entry); err != nil {
		s.log.Warn("failed to record access audit entry",
			logger.ActorID(actorID.String()),
			logger.Err(err),
		)
	}
}
