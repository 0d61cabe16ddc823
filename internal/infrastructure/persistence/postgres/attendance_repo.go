package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE EVENT STORE
// Append-only: this file contains exactly one INSERT and no UPDATE or DELETE
// against attendance_events. Corrections are new compensating rows written by
// the application layer.
// ══════════════════════════════════════════════════════════════════════════════

// EventStore implements attendance.EventStore for PostgreSQL.
type EventStore struct {
	db Querier
}

// NewEventStore creates a new EventStore.
func NewEventStore(db Querier) *EventStore {
	return &EventStore{db: db}
}

const eventColumns = `id, assignment_id, center_id, student_id, faculty_id,
	date, status, in_minutes, out_minutes, duration_minutes,
	topics, is_backdated, backdate_reason, notes, created_at, created_by`

// Append persists a new ledger row.
func (s *EventStore) Append(ctx context.Context, e *attendance.Event) error {
	query := `
		INSERT INTO attendance_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	var inMinutes, outMinutes *int
	if e.InTime != nil {
		m := e.InTime.Minutes()
		inMinutes = &m
	}
	if e.OutTime != nil {
		m := e.OutTime.Minutes()
		outMinutes = &m
	}
	topics := e.Topics
	if topics == nil {
		topics = []string{}
	}

	_, err := s.db.Exec(ctx, query,
		e.ID,
		e.AssignmentID.String(),
		e.CenterID.String(),
		e.StudentID,
		e.FacultyID,
		e.Date.Time(),
		e.Status.String(),
		inMinutes,
		outMinutes,
		e.DurationMinutes,
		topics,
		e.IsBackdated,
		e.BackdateReason,
		e.Notes,
		e.CreatedAt,
		e.CreatedBy.String(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("attendance", "Append", shared.ErrAlreadyExists, "event already recorded")
		}
		return fmt.Errorf("failed to append attendance event: %w", err)
	}
	return nil
}

func scanEvent(scan func(dest ...interface{}) error) (*attendance.Event, error) {
	var (
		e            attendance.Event
		assignmentID string
		centerID     string
		date         time.Time
		status       string
		inMinutes    *int
		outMinutes   *int
		createdBy    string
	)
	err := scan(
		&e.ID, &assignmentID, &centerID, &e.StudentID, &e.FacultyID,
		&date, &status, &inMinutes, &outMinutes, &e.DurationMinutes,
		&e.Topics, &e.IsBackdated, &e.BackdateReason, &e.Notes, &e.CreatedAt, &createdBy,
	)
	if err != nil {
		return nil, err
	}
	e.AssignmentID = shared.AssignmentID(assignmentID)
	e.CenterID = shared.TenantID(centerID)
	e.Date = shared.DayOf(date)
	e.Status = attendance.Status(status)
	e.CreatedBy = shared.ActorID(createdBy)
	if inMinutes != nil {
		c := shared.ClockTime(*inMinutes)
		e.InTime = &c
	}
	if outMinutes != nil {
		c := shared.ClockTime(*outMinutes)
		e.OutTime = &c
	}
	if len(e.Topics) == 0 {
		e.Topics = nil
	}
	return &e, nil
}

// GetByID returns one event.
func (s *EventStore) GetByID(ctx context.Context, id string) (*attendance.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM attendance_events WHERE id = $1`

	e, err := scanEvent(s.db.QueryRow(ctx, query, id).Scan)
	if err != nil {
		if IsNoRows(err) {
			return nil, attendance.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get attendance event: %w", err)
	}
	return e, nil
}

// ListByCenter returns events of one center matching the filter, newest date
// first.
func (s *EventStore) ListByCenter(ctx context.Context, centerID shared.TenantID, filter attendance.Filter, opts shared.ListOptions) ([]*attendance.Event, error) {
	opts = opts.Normalize()

	var sb strings.Builder
	sb.WriteString(`SELECT ` + eventColumns + ` FROM attendance_events WHERE center_id = $1`)

	args := []interface{}{centerID.String()}
	if !filter.From.IsZero() {
		args = append(args, filter.From.Time())
		fmt.Fprintf(&sb, " AND date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.Time())
		fmt.Fprintf(&sb, " AND date <= $%d", len(args))
	}
	if !filter.AssignmentID.IsEmpty() {
		args = append(args, filter.AssignmentID.String())
		fmt.Fprintf(&sb, " AND assignment_id = $%d", len(args))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		fmt.Fprintf(&sb, " AND student_id = $%d", len(args))
	}
	if filter.FacultyID != "" {
		args = append(args, filter.FacultyID)
		fmt.Fprintf(&sb, " AND faculty_id = $%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = st.String()
		}
		args = append(args, statuses)
		fmt.Fprintf(&sb, " AND status = ANY($%d)", len(args))
	}

	args = append(args, opts.Limit, opts.Offset)
	fmt.Fprintf(&sb, " ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance events: %w", err)
	}
	defer rows.Close()

	var events []*attendance.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// HasOverlap reports whether a present-status event on the same assignment
// and date intersects the [in, out) range.
func (s *EventStore) HasOverlap(ctx context.Context, assignmentID shared.AssignmentID, date shared.Day, in, out shared.ClockTime) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM attendance_events
			WHERE assignment_id = $1
			  AND date = $2
			  AND status = 'present'
			  AND in_minutes < $4
			  AND out_minutes > $3
		)
	`

	var exists bool
	err := s.db.QueryRow(ctx, query,
		assignmentID.String(), date.Time(), in.Minutes(), out.Minutes(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check session overlap: %w", err)
	}
	return exists, nil
}

// LastEventDays returns the most recent event date per assignment for one
// center.
func (s *EventStore) LastEventDays(ctx context.Context, centerID shared.TenantID) (map[shared.AssignmentID]shared.Day, error) {
	query := `
		SELECT assignment_id, MAX(date)
		FROM attendance_events
		WHERE center_id = $1
		GROUP BY assignment_id
	`

	rows, err := s.db.Query(ctx, query, centerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query last event days: %w", err)
	}
	defer rows.Close()

	result := make(map[shared.AssignmentID]shared.Day)
	for rows.Next() {
		var (
			assignmentID string
			last         time.Time
		)
		if err := rows.Scan(&assignmentID, &last); err != nil {
			return nil, fmt.Errorf("failed to scan last event day: %w", err)
		}
		result[shared.AssignmentID(assignmentID)] = shared.DayOf(last)
	}
	return result, rows.Err()
}

// CoveredTopicCounts returns the number of distinct topics recorded per
// assignment for one center.
func (s *EventStore) CoveredTopicCounts(ctx context.Context, centerID shared.TenantID) (map[shared.AssignmentID]int, error) {
	query := `
		SELECT e.assignment_id, COUNT(DISTINCT t.topic)
		FROM attendance_events e, unnest(e.topics) AS t(topic)
		WHERE e.center_id = $1
		GROUP BY e.assignment_id
	`

	rows, err := s.db.Query(ctx, query, centerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query covered topics: %w", err)
	}
	defer rows.Close()

	result := make(map[shared.AssignmentID]int)
	for rows.Next() {
		var (
			assignmentID string
			count        int
		)
		if err := rows.Scan(&assignmentID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan topic count: %w", err)
		}
		result[shared.AssignmentID(assignmentID)] = count
	}
	return result, rows.Err()
}
