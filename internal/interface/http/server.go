// Package http implements the REST API server: routing, middleware,
// authentication, and the JSON envelope every endpoint answers with.
// Handlers translate wire requests into application commands and queries;
// no business rule lives here.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/learnledger/attendance-hub/internal/application/command"
	"github.com/learnledger/attendance-hub/internal/application/query"
	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
	"github.com/learnledger/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds HTTP server configuration.
type Config struct {
	// Host is the interface to bind to.
	Host string

	// Port is the TCP port to listen on.
	Port int

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out response writes.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum time to wait for the next request on a
	// keep-alive connection.
	IdleTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// RateLimitPerMinute caps requests per IP per minute. Zero disables
	// rate limiting.
	RateLimitPerMinute int

	// EnableCORS toggles the CORS middleware.
	EnableCORS bool

	// AllowedOrigins lists the origins CORS answers for. "*" allows any.
	AllowedOrigins []string
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		RateLimitPerMinute: 120,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
	}
}

// Address returns the listen address in "host:port" format.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies carries everything the server needs to answer requests.
type Dependencies struct {
	Resolver *rbac.Resolver
	Tokens   *TokenManager
	Actors   directory.ActorRepository
	Sessions rbac.SessionStore
	Audit    audit.Recorder

	RecordSession *command.RecordSessionHandler
	SwitchTenant  *command.SwitchTenantHandler
	ArchiveEntity *command.ArchiveEntityHandler

	AttendanceVelocity *query.AttendanceVelocityHandler
	LearningVelocity   *query.LearningVelocityHandler
	AssignmentHealth   *query.AssignmentHealthHandler
	FacultyPerformance *query.FacultyPerformanceHandler
	ReconstructState   *query.ReconstructStateHandler
	ListSessions       *query.ListSessionsHandler
	ListAssignments    *query.ListAssignmentsHandler
	ListAudit          *query.ListAuditHandler

	// ReadyCheck probes the backing stores for the readiness endpoint.
	// Optional; a nil check reports ready.
	ReadyCheck func(ctx context.Context) error

	Logger *logger.Logger
}

// Validate checks that the required dependencies are present.
func (d Dependencies) Validate() error {
	if d.Resolver == nil {
		return errors.New("http: resolver is required")
	}
	if d.Tokens == nil {
		return errors.New("http: token manager is required")
	}
	if d.Actors == nil {
		return errors.New("http: actor repository is required")
	}
	if d.RecordSession == nil || d.SwitchTenant == nil || d.ArchiveEntity == nil {
		return errors.New("http: command handlers are required")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP API server.
type Server struct {
	config Config
	deps   Dependencies
	log    *logger.Logger

	httpServer *http.Server
	limiter    *rateLimiter
}

// NewServer creates a new Server and registers all routes.
func NewServer(config Config, deps Dependencies) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}

	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		config: config,
		deps:   deps,
		log:    log.With(logger.Component("http")),
	}
	if config.RateLimitPerMinute > 0 {
		s.limiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         config.Address(),
		Handler:      s.buildHandler(mux),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s, nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Probes, unauthenticated.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)

	// Authentication.
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.Handle("POST /api/v1/auth/logout", s.authenticated(s.handleLogout))

	// Ledger.
	mux.Handle("POST /api/v1/sessions", s.authenticated(s.handleRecordSession))
	mux.Handle("GET /api/v1/sessions", s.authenticated(s.handleListSessions))

	// Directory.
	mux.Handle("GET /api/v1/assignments", s.authenticated(s.handleListAssignments))
	mux.Handle("DELETE /api/v1/directory/{kind}/{id}", s.authenticated(s.handleArchiveEntity))

	// Session scope.
	mux.Handle("POST /api/v1/tenant/switch", s.authenticated(s.handleSwitchTenant))

	// Analytics, computed on demand.
	mux.Handle("GET /api/v1/analytics/velocity", s.authenticated(s.handleAttendanceVelocity))
	mux.Handle("GET /api/v1/analytics/students/{id}/velocity", s.authenticated(s.handleLearningVelocity))
	mux.Handle("GET /api/v1/analytics/assignments/health", s.authenticated(s.handleAssignmentHealth))
	mux.Handle("GET /api/v1/analytics/faculty", s.authenticated(s.handleFacultyPerformance))

	// Audit trail.
	mux.Handle("GET /api/v1/audit", s.authenticated(s.handleListAudit))
	mux.Handle("GET /api/v1/audit/{type}/{id}/state", s.authenticated(s.handleReconstructState))
}

// buildHandler wraps the mux with the middleware chain, outermost first.
func (s *Server) buildHandler(mux *http.ServeMux) http.Handler {
	var handler http.Handler = mux
	if s.limiter != nil {
		handler = s.rateLimitMiddleware(handler)
	}
	if s.config.EnableCORS {
		handler = s.corsMiddleware(handler)
	}
	handler = s.recoveryMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.requestIDMiddleware(handler)
	return handler
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start runs the server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info("http server starting", logger.String("address", s.config.Address()))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// StartAsync runs the server in a goroutine and reports startup errors on
// the returned channel.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()
	return errCh
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	if s.limiter != nil {
		s.limiter.stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope every endpoint answers with.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	resp := JSONResponse{
		Success:   status < http.StatusBadRequest,
		Data:      data,
		RequestID: requestIDFrom(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("failed to encode response", logger.Err(err))
	}
}

func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	resp := JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details},
		RequestID: requestIDFrom(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("failed to encode error response", logger.Err(err))
	}
}

// writeError maps a domain error onto an HTTP status and error code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal detail stays in the log.
		s.log.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		message = "internal server error"
	}
	s.writeAPIError(w, r, status, code, message, nil)
}

// classifyError translates the domain error taxonomy into transport terms.
// Scope violations surface as NOT_FOUND by construction, so nothing here can
// leak cross-tenant existence.
func classifyError(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, shared.ErrPermissionDenied):
		return http.StatusForbidden, "FORBIDDEN"
	case shared.IsValidation(err):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR"
	case shared.IsConflict(err),
		errors.Is(err, shared.ErrStateTransition),
		errors.Is(err, shared.ErrImmutable),
		errors.Is(err, shared.ErrAlreadyDeleted):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, shared.ErrInvalidState):
		return http.StatusConflict, "INVALID_STATE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const requestIDKey contextKey = "request_id"

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.log.Info("request handled",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.status),
			logger.Latency(time.Since(start)),
			logger.String("ip", getClientIP(r)),
			logger.String("request_id", requestIDFrom(r.Context())),
		)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered",
					logger.String("path", r.URL.Path),
					logger.F("panic", fmt.Sprintf("%v", rec)),
				)
				s.writeAPIError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(getClientIP(r)) {
			s.writeAPIError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter captures the status code for the access log.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// rateLimiter is a fixed-window per-IP counter. Good enough to keep one
// misbehaving client from starving the rest; not a DDoS defence.
type rateLimiter struct {
	mu      sync.Mutex
	counts  map[string]*windowCount
	limit   int
	window  time.Duration
	closeCh chan struct{}
}

type windowCount struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		counts:  make(map[string]*windowCount),
		limit:   limit,
		window:  window,
		closeCh: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	wc, ok := rl.counts[ip]
	if !ok || now.After(wc.resetAt) {
		rl.counts[ip] = &windowCount{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if wc.count >= rl.limit {
		return false
	}
	wc.count++
	return true
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for ip, wc := range rl.counts {
				if now.After(wc.resetAt) {
					delete(rl.counts, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.closeCh:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	close(rl.closeCh)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// getClientIP extracts the client IP, honouring proxy headers.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func getQueryParam(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

func getQueryParamInt(r *http.Request, name string, fallback int) int {
	value := getQueryParam(r, name)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
