package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT REPOSITORY
// Implements both audit.Recorder and audit.Reader. Record runs inside the
// same transaction as the domain write it describes; any storage failure is
// wrapped in shared.ErrAuditWrite so the caller aborts the whole transaction.
// ══════════════════════════════════════════════════════════════════════════════

// AuditRepository implements audit.Recorder and audit.Reader for PostgreSQL.
type AuditRepository struct {
	db Querier
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db Querier) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `id, actor_id, action, entity_type, entity_id, tenant_id,
	before_state, after_state, reason, ts, ip`

// Record persists one audit entry.
func (r *AuditRepository) Record(ctx context.Context, entry *audit.Entry) error {
	query := `
		INSERT INTO audit_entries (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	before, err := marshalState(entry.Before)
	if err != nil {
		return shared.WrapError("audit", "Record", shared.ErrAuditWrite, "failed to serialize before state", err)
	}
	after, err := marshalState(entry.After)
	if err != nil {
		return shared.WrapError("audit", "Record", shared.ErrAuditWrite, "failed to serialize after state", err)
	}

	_, err = r.db.Exec(ctx, query,
		entry.ID,
		entry.ActorID.String(),
		entry.Action.String(),
		entry.EntityType,
		entry.EntityID,
		entry.TenantID.String(),
		before,
		after,
		entry.Reason,
		entry.Timestamp,
		entry.IP,
	)
	if err != nil {
		return shared.WrapError("audit", "Record", shared.ErrAuditWrite, "failed to persist audit entry", err)
	}
	return nil
}

func marshalState(state audit.State) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

func scanAuditEntry(scan func(dest ...interface{}) error) (*audit.Entry, error) {
	var (
		e        audit.Entry
		actorID  string
		action   string
		tenantID string
		before   []byte
		after    []byte
	)
	err := scan(
		&e.ID, &actorID, &action, &e.EntityType, &e.EntityID, &tenantID,
		&before, &after, &e.Reason, &e.Timestamp, &e.IP,
	)
	if err != nil {
		return nil, err
	}
	e.ActorID = shared.ActorID(actorID)
	e.Action = audit.Action(action)
	e.TenantID = shared.TenantID(tenantID)
	if len(before) > 0 {
		if err := json.Unmarshal(before, &e.Before); err != nil {
			return nil, fmt.Errorf("failed to decode before state: %w", err)
		}
	}
	if len(after) > 0 {
		if err := json.Unmarshal(after, &e.After); err != nil {
			return nil, fmt.Errorf("failed to decode after state: %w", err)
		}
	}
	return &e, nil
}

// List returns entries matching the filter, newest first, scoped to one
// center. A zero tenantID reads the cross-tenant entries.
func (r *AuditRepository) List(ctx context.Context, tenantID shared.TenantID, filter audit.Filter, opts shared.ListOptions) ([]*audit.Entry, error) {
	opts = opts.Normalize()

	var sb strings.Builder
	sb.WriteString(`SELECT ` + auditColumns + ` FROM audit_entries WHERE tenant_id = $1`)

	args := []interface{}{tenantID.String()}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		fmt.Fprintf(&sb, " AND entity_type = $%d", len(args))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		fmt.Fprintf(&sb, " AND entity_id = $%d", len(args))
	}
	if !filter.ActorID.IsEmpty() {
		args = append(args, filter.ActorID.String())
		fmt.Fprintf(&sb, " AND actor_id = $%d", len(args))
	}
	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = a.String()
		}
		args = append(args, actions)
		fmt.Fprintf(&sb, " AND action = ANY($%d)", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&sb, " AND ts >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&sb, " AND ts <= $%d", len(args))
	}

	args = append(args, opts.Limit, opts.Offset)
	fmt.Fprintf(&sb, " ORDER BY ts DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		e, err := scanAuditEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// StateAt returns the after-state of the latest mutation entry for the
// entity with timestamp <= t.
func (r *AuditRepository) StateAt(ctx context.Context, entityType, entityID string, t time.Time) (audit.State, error) {
	query := `
		SELECT after_state
		FROM audit_entries
		WHERE entity_type = $1
		  AND entity_id = $2
		  AND ts <= $3
		  AND action IN ('CREATE', 'UPDATE', 'DELETE')
		ORDER BY ts DESC
		LIMIT 1
	`

	var after []byte
	if err := r.db.QueryRow(ctx, query, entityType, entityID, t).Scan(&after); err != nil {
		if IsNoRows(err) {
			return nil, audit.ErrNoStateBefore
		}
		return nil, fmt.Errorf("failed to query state at: %w", err)
	}

	var state audit.State
	if len(after) > 0 {
		if err := json.Unmarshal(after, &state); err != nil {
			return nil, fmt.Errorf("failed to decode state: %w", err)
		}
	}
	return state, nil
}

// CountForEntity returns how many entries an entity's chain holds.
func (r *AuditRepository) CountForEntity(ctx context.Context, entityType, entityID string) (int, error) {
	query := `SELECT COUNT(*) FROM audit_entries WHERE entity_type = $1 AND entity_id = $2`

	var count int
	if err := r.db.QueryRow(ctx, query, entityType, entityID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}
