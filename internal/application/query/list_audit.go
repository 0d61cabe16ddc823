package query

import (
	"context"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST AUDIT QUERY
// Compliance reads over the audit trail. Bound roles see their own center's
// chain; master reads the active center, or the cross-tenant entries when no
// center is selected.
// ══════════════════════════════════════════════════════════════════════════════

// ListAuditQuery contains the filter for an audit listing.
type ListAuditQuery struct {
	// Ctx is the resolved authorization context of the caller.
	Ctx *rbac.Context

	EntityType string
	EntityID   string
	ActorID    string
	Actions    []audit.Action

	From time.Time
	To   time.Time

	Limit  int
	Offset int
}

// Validate checks the query.
func (q *ListAuditQuery) Validate() error {
	if q.Ctx == nil {
		return shared.NewDomainError("query", "ListAudit", shared.ErrUnauthorized, "missing authorization context")
	}
	for _, a := range q.Actions {
		if !a.IsValid() {
			return shared.NewDomainError("query", "ListAudit", shared.ErrValidation, "unknown audit action")
		}
	}
	return nil
}

// AuditEntryDTO is the wire shape of one audit entry.
type AuditEntryDTO struct {
	ID         string      `json:"id"`
	ActorID    string      `json:"actor_id"`
	Action     string      `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	TenantID   string      `json:"tenant_id,omitempty"`
	Before     audit.State `json:"before,omitempty"`
	After      audit.State `json:"after,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	Timestamp  string      `json:"timestamp"`
	IP         string      `json:"ip,omitempty"`
}

// ListAuditResult contains the listed entries, newest first.
type ListAuditResult struct {
	Entries []AuditEntryDTO `json:"entries"`
}

// ListAuditHandler handles audit listings.
type ListAuditHandler struct {
	reader audit.Reader
}

// NewListAuditHandler creates a new handler.
func NewListAuditHandler(reader audit.Reader) *ListAuditHandler {
	return &ListAuditHandler{reader: reader}
}

// Handle executes the query. Faculty has no audit access.
func (h *ListAuditHandler) Handle(ctx context.Context, query ListAuditQuery) (*ListAuditResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.Ctx.Role == directory.RoleFaculty {
		return nil, shared.NewDomainError("query", "ListAudit", shared.ErrPermissionDenied, "faculty may not read the audit trail")
	}

	var scope shared.TenantID
	if query.Ctx.IsMaster() {
		// Empty active center reads the cross-tenant chain.
		scope = query.Ctx.ActiveCenter
	} else {
		var err error
		if scope, err = query.Ctx.Scope(); err != nil {
			return nil, err
		}
	}

	entries, err := h.reader.List(ctx, scope, audit.Filter{
		EntityType: query.EntityType,
		EntityID:   query.EntityID,
		ActorID:    shared.ActorID(query.ActorID),
		Actions:    query.Actions,
		From:       query.From,
		To:         query.To,
	}, shared.ListOptions{Limit: query.Limit, Offset: query.Offset}.Normalize())
	if err != nil {
		return nil, err
	}

	result := &ListAuditResult{Entries: make([]AuditEntryDTO, 0, len(entries))}
	for _, e := range entries {
		result.Entries = append(result.Entries, AuditEntryDTO{
			ID:         e.ID,
			ActorID:    e.ActorID.String(),
			Action:     e.Action.String(),
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			TenantID:   e.TenantID.String(),
			Before:     e.Before,
			After:      e.After,
			Reason:     e.Reason,
			Timestamp:  e.Timestamp.Format(time.RFC3339),
			IP:         e.IP,
		})
	}
	return result, nil
}
