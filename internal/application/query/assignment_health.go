package query

import (
	"context"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/rbac"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT HEALTH QUERY
// Three risk views over active assignments, computed in one pass:
// at-risk (no event in the trailing window), extended-enrollment (open
// beyond a month threshold with low topic coverage), nearing-completion
// (coverage ratio above a percentage threshold).
// ══════════════════════════════════════════════════════════════════════════════

// AssignmentHealthQuery contains the thresholds for a health read.
type AssignmentHealthQuery struct {
	// Ctx is the resolved authorization context of the caller.
	Ctx *rbac.Context

	// DaysThreshold: an active assignment with no event in this many
	// trailing days is at risk. Defaults to 7.
	DaysThreshold int

	// MonthsThreshold: an assignment open this many months with low
	// coverage counts as extended enrollment. Defaults to 6.
	MonthsThreshold int

	// CompletionPct: coverage ratio (0-100) above which an assignment is
	// nearing completion. Defaults to 80.
	CompletionPct int
}

// Validate checks and normalizes the query.
func (q *AssignmentHealthQuery) Validate() error {
	if q.Ctx == nil {
		return shared.NewDomainError("query", "AssignmentHealth", shared.ErrUnauthorized, "missing authorization context")
	}
	if q.DaysThreshold <= 0 {
		q.DaysThreshold = 7
	}
	if q.MonthsThreshold <= 0 {
		q.MonthsThreshold = 6
	}
	if q.CompletionPct <= 0 {
		q.CompletionPct = 80
	}
	if q.CompletionPct > 100 {
		q.CompletionPct = 100
	}
	return nil
}

// LowCoveragePct is the coverage ratio below which a long-open assignment
// counts as extended enrollment.
const LowCoveragePct = 50

// AssignmentHealthItem describes one assignment in a health list.
type AssignmentHealthItem struct {
	AssignmentID shared.AssignmentID `json:"assignment_id"`
	StudentID    string              `json:"student_id"`
	FacultyID    string              `json:"faculty_id"`
	SubjectID    string              `json:"subject_id"`

	// LastEventDate is empty when the assignment has no events at all.
	LastEventDate string `json:"last_event_date,omitempty"`

	// DaysSinceEvent is -1 when the assignment has no events.
	DaysSinceEvent int `json:"days_since_event"`

	MonthsOpen int `json:"months_open"`

	// CoveragePct is -1 when the subject has no topic total to measure
	// against.
	CoveragePct int `json:"coverage_pct"`
}

// AssignmentHealthResult contains the three computed lists.
type AssignmentHealthResult struct {
	CenterID shared.TenantID `json:"center_id"`

	AtRisk             []AssignmentHealthItem `json:"at_risk"`
	ExtendedEnrollment []AssignmentHealthItem `json:"extended_enrollment"`
	NearingCompletion  []AssignmentHealthItem `json:"nearing_completion"`

	GeneratedAt time.Time `json:"generated_at"`
}

// AssignmentHealthHandler handles assignment health queries.
type AssignmentHealthHandler struct {
	events      attendance.EventStore
	assignments directory.AssignmentRepository
	subjects    directory.SubjectRepository

	now func() time.Time
}

// NewAssignmentHealthHandler creates a new handler.
func NewAssignmentHealthHandler(events attendance.EventStore, assignments directory.AssignmentRepository, subjects directory.SubjectRepository) *AssignmentHealthHandler {
	return &AssignmentHealthHandler{
		events:      events,
		assignments: assignments,
		subjects:    subjects,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *AssignmentHealthHandler) WithClock(now func() time.Time) *AssignmentHealthHandler {
	h.now = now
	return h
}

// Handle executes the query.
func (h *AssignmentHealthHandler) Handle(ctx context.Context, query AssignmentHealthQuery) (*AssignmentHealthResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	scope, err := query.Ctx.Scope()
	if err != nil {
		return nil, err
	}

	now := h.now()
	today := shared.DayOf(now)

	active, err := listAll(func(opts shared.ListOptions) ([]*directory.Assignment, error) {
		return h.assignments.ListByCenter(ctx, scope, directory.AssignmentFilter{
			State: directory.AssignmentActive,
		}, opts)
	})
	if err != nil {
		return nil, err
	}

	lastDays, err := h.events.LastEventDays(ctx, scope)
	if err != nil {
		return nil, err
	}
	covered, err := h.events.CoveredTopicCounts(ctx, scope)
	if err != nil {
		return nil, err
	}

	// Topic totals per subject, fetched once per distinct subject.
	totals := make(map[string]int)
	for _, a := range active {
		if _, seen := totals[a.SubjectID]; seen {
			continue
		}
		subject, err := h.subjects.GetByID(ctx, a.SubjectID)
		if err != nil {
			if shared.IsNotFound(err) {
				totals[a.SubjectID] = 0
				continue
			}
			return nil, err
		}
		totals[a.SubjectID] = subject.TotalTopics
	}

	result := &AssignmentHealthResult{CenterID: scope, GeneratedAt: now}

	for _, a := range active {
		item := AssignmentHealthItem{
			AssignmentID:   a.ID,
			StudentID:      a.StudentID,
			FacultyID:      a.FacultyID,
			SubjectID:      a.SubjectID,
			DaysSinceEvent: -1,
			MonthsOpen:     a.MonthsOpen(now),
			CoveragePct:    -1,
		}

		if last, ok := lastDays[a.ID]; ok {
			item.LastEventDate = last.String()
			item.DaysSinceEvent = today.DaysSince(last)
		}
		if total := totals[a.SubjectID]; total > 0 {
			item.CoveragePct = covered[a.ID] * 100 / total
		}

		if item.DaysSinceEvent < 0 || item.DaysSinceEvent > query.DaysThreshold {
			result.AtRisk = append(result.AtRisk, item)
		}
		if item.MonthsOpen >= query.MonthsThreshold && (item.CoveragePct < 0 || item.CoveragePct < LowCoveragePct) {
			result.ExtendedEnrollment = append(result.ExtendedEnrollment, item)
		}
		if item.CoveragePct >= query.CompletionPct {
			result.NearingCompletion = append(result.NearingCompletion, item)
		}
	}

	return result, nil
}
