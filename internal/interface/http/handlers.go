package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/learnledger/attendance-hub/internal/application/command"
	"github.com/learnledger/attendance-hub/internal/application/query"
	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

var validate = validator.New()

// decodeBody parses and validates a JSON request body. Writes the error
// response itself and returns false when the body is unusable.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeAPIError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		s.writeAPIError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "request body failed validation", err.Error())
		return false
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// PROBES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReadyCheck != nil {
		if err := s.deps.ReadyCheck(r.Context()); err != nil {
			s.writeAPIError(w, r, http.StatusServiceUnavailable, "NOT_READY", "backing stores are not reachable", err.Error())
			return
		}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER
// ══════════════════════════════════════════════════════════════════════════════

type recordSessionRequest struct {
	AssignmentID string `json:"assignment_id" validate:"required,uuid"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Status       string `json:"status" validate:"required"`

	InTime  string `json:"in_time,omitempty"`
	OutTime string `json:"out_time,omitempty"`

	Topics         []string `json:"topics,omitempty" validate:"max=50,dive,min=1,max=200"`
	Notes          string   `json:"notes,omitempty" validate:"max=2000"`
	BackdateReason string   `json:"backdate_reason,omitempty" validate:"max=500"`
}

type recordSessionResponse struct {
	EventID             string `json:"event_id"`
	AssignmentID        string `json:"assignment_id"`
	Date                string `json:"date"`
	Status              string `json:"status"`
	IsBackdated         bool   `json:"is_backdated"`
	AssignmentCompleted bool   `json:"assignment_completed"`
}

func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	var req recordSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.RecordSessionCommand{
		Ctx:            authCtx,
		Status:         attendance.Status(req.Status),
		Topics:         req.Topics,
		Notes:          req.Notes,
		BackdateReason: req.BackdateReason,
		IP:             getClientIP(r),
	}

	var err error
	if cmd.AssignmentID, err = shared.NewAssignmentID(req.AssignmentID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if cmd.Date, err = shared.ParseDay(req.Date); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.InTime != "" {
		in, err := shared.ParseClockTime(req.InTime)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		cmd.InTime = &in
	}
	if req.OutTime != "" {
		out, err := shared.ParseClockTime(req.OutTime)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		cmd.OutTime = &out
	}

	result, err := s.deps.RecordSession.Handle(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, recordSessionResponse{
		EventID:             result.Event.ID,
		AssignmentID:        result.Event.AssignmentID.String(),
		Date:                result.Event.Date.String(),
		Status:              result.Event.Status.String(),
		IsBackdated:         result.Event.IsBackdated,
		AssignmentCompleted: result.AssignmentCompleted,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	q := query.ListSessionsQuery{
		Ctx:       authCtx,
		From:      getQueryParam(r, "from"),
		To:        getQueryParam(r, "to"),
		StudentID: getQueryParam(r, "student_id"),
		FacultyID: getQueryParam(r, "faculty_id"),
		Limit:     getQueryParamInt(r, "limit", 0),
		Offset:    getQueryParamInt(r, "offset", 0),
	}
	q.AssignmentID = shared.AssignmentID(getQueryParam(r, "assignment_id"))
	for _, status := range splitParam(getQueryParam(r, "status")) {
		q.Statuses = append(q.Statuses, attendance.Status(status))
	}

	result, err := s.deps.ListSessions.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	q := query.ListAssignmentsQuery{
		Ctx:       authCtx,
		State:     directory.AssignmentState(getQueryParam(r, "state")),
		FacultyID: getQueryParam(r, "faculty_id"),
		StudentID: getQueryParam(r, "student_id"),
		Limit:     getQueryParamInt(r, "limit", 0),
		Offset:    getQueryParamInt(r, "offset", 0),
	}

	result, err := s.deps.ListAssignments.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleArchiveEntity(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	cmd := command.ArchiveEntityCommand{
		Ctx:      authCtx,
		Kind:     command.EntityKind(r.PathValue("kind")),
		EntityID: r.PathValue("id"),
		Reason:   getQueryParam(r, "reason"),
		IP:       getClientIP(r),
	}

	if err := s.deps.ArchiveEntity.Handle(r.Context(), cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":    "archived",
		"kind":      string(cmd.Kind),
		"entity_id": cmd.EntityID,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION SCOPE
// ══════════════════════════════════════════════════════════════════════════════

type switchTenantRequest struct {
	CenterID string `json:"center_id" validate:"required,uuid"`
}

func (s *Server) handleSwitchTenant(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	var req switchTenantRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	tenantID, err := shared.NewTenantID(req.CenterID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.SwitchTenant.Handle(r.Context(), command.SwitchTenantCommand{
		Ctx:      authCtx,
		TenantID: tenantID,
		IP:       getClientIP(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleAttendanceVelocity(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	q := query.AttendanceVelocityQuery{
		Ctx:        authCtx,
		WindowDays: getQueryParamInt(r, "window_days", 0),
		FacultyID:  getQueryParam(r, "faculty_id"),
	}
	q.AssignmentID = shared.AssignmentID(getQueryParam(r, "assignment_id"))

	result, err := s.deps.AttendanceVelocity.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleLearningVelocity(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	result, err := s.deps.LearningVelocity.Handle(r.Context(), query.LearningVelocityQuery{
		Ctx:       authCtx,
		StudentID: r.PathValue("id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleAssignmentHealth(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	result, err := s.deps.AssignmentHealth.Handle(r.Context(), query.AssignmentHealthQuery{
		Ctx:             authCtx,
		DaysThreshold:   getQueryParamInt(r, "days_threshold", 0),
		MonthsThreshold: getQueryParamInt(r, "months_threshold", 0),
		CompletionPct:   getQueryParamInt(r, "completion_pct", 0),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleFacultyPerformance(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	result, err := s.deps.FacultyPerformance.Handle(r.Context(), query.FacultyPerformanceQuery{
		Ctx:        authCtx,
		WindowDays: getQueryParamInt(r, "window_days", 0),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT TRAIL
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	q := query.ListAuditQuery{
		Ctx:        authCtx,
		EntityType: getQueryParam(r, "entity_type"),
		EntityID:   getQueryParam(r, "entity_id"),
		ActorID:    getQueryParam(r, "actor_id"),
		Limit:      getQueryParamInt(r, "limit", 0),
		Offset:     getQueryParamInt(r, "offset", 0),
	}
	for _, action := range splitParam(getQueryParam(r, "action")) {
		q.Actions = append(q.Actions, audit.Action(strings.ToUpper(action)))
	}

	var ok bool
	if q.From, ok = s.parseTimeParam(w, r, "from"); !ok {
		return
	}
	if q.To, ok = s.parseTimeParam(w, r, "to"); !ok {
		return
	}

	result, err := s.deps.ListAudit.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleReconstructState(w http.ResponseWriter, r *http.Request, authCtx *rbac.Context) {
	q := query.ReconstructStateQuery{
		Ctx:        authCtx,
		EntityType: r.PathValue("type"),
		EntityID:   r.PathValue("id"),
	}

	var ok bool
	if q.At, ok = s.parseTimeParam(w, r, "at"); !ok {
		return
	}

	result, err := s.deps.ReconstructState.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

// parseTimeParam reads an optional RFC 3339 query parameter. Writes the
// error response itself and reports !ok on a malformed value.
func (s *Server) parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	value := getQueryParam(r, name)
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		s.writeAPIError(w, r, http.StatusBadRequest, "INVALID_PARAMETER",
			name+" must be an RFC 3339 timestamp", err.Error())
		return time.Time{}, false
	}
	return t, true
}

func splitParam(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
