package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/directory"
	"github.com/learnledger/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROW METADATA
// Every directory table carries the same provenance and soft-delete columns.
// ══════════════════════════════════════════════════════════════════════════════

const metaColumns = "created_at, created_by, modified_at, modified_by, is_deleted, deleted_at, deleted_by"

type rowMeta struct {
	createdAt  time.Time
	createdBy  string
	modifiedAt time.Time
	modifiedBy string
	isDeleted  bool
	deletedAt  *time.Time
	deletedBy  *string
}

func (m *rowMeta) fields() []interface{} {
	return []interface{}{
		&m.createdAt, &m.createdBy, &m.modifiedAt, &m.modifiedBy,
		&m.isDeleted, &m.deletedAt, &m.deletedBy,
	}
}

func (m *rowMeta) apply(p *shared.Provenance, d *shared.SoftDelete) {
	p.CreatedAt = m.createdAt
	p.CreatedBy = shared.ActorID(m.createdBy)
	p.ModifiedAt = m.modifiedAt
	p.ModifiedBy = shared.ActorID(m.modifiedBy)
	d.IsDeleted = m.isDeleted
	d.DeletedAt = m.deletedAt
	if m.deletedBy != nil {
		by := shared.ActorID(*m.deletedBy)
		d.DeletedBy = &by
	}
}

func metaArgs(p shared.Provenance, d shared.SoftDelete) []interface{} {
	var deletedBy *string
	if d.DeletedBy != nil {
		s := d.DeletedBy.String()
		deletedBy = &s
	}
	return []interface{}{
		p.CreatedAt, p.CreatedBy.String(), p.ModifiedAt, p.ModifiedBy.String(),
		d.IsDeleted, d.DeletedAt, deletedBy,
	}
}

// deletedPredicate returns the soft-delete clause for list queries.
func deletedPredicate(opts shared.ListOptions) string {
	if opts.IncludeDeleted {
		return ""
	}
	return " AND NOT is_deleted"
}

// archiveRow marks a row deleted; shared by every directory repository.
func archiveRow(ctx context.Context, db Querier, table, id string, by shared.ActorID, notFound error) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			is_deleted = TRUE,
			deleted_at = $1,
			deleted_by = $2,
			modified_at = $1,
			modified_by = $2
		WHERE id = $3 AND NOT is_deleted
	`, table)

	result, err := db.Exec(ctx, query, time.Now().UTC(), by.String(), id)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", table, err)
	}
	if result.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CENTER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CenterRepository implements directory.CenterRepository for PostgreSQL.
type CenterRepository struct {
	db Querier
}

// NewCenterRepository creates a new CenterRepository.
func NewCenterRepository(db Querier) *CenterRepository {
	return &CenterRepository{db: db}
}

// Create persists a new center.
func (r *CenterRepository) Create(ctx context.Context, c *directory.Center) error {
	query := `
		INSERT INTO centers (id, name, address, phone, ` + metaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	args := append([]interface{}{c.ID.String(), c.Name, c.Address, c.Phone}, metaArgs(c.Provenance, c.SoftDelete)...)
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("directory", "CreateCenter", shared.ErrAlreadyExists, "center already exists")
		}
		return fmt.Errorf("failed to create center: %w", err)
	}
	return nil
}

// GetByID returns a center by ID, excluding archived rows.
func (r *CenterRepository) GetByID(ctx context.Context, id shared.TenantID) (*directory.Center, error) {
	query := `
		SELECT id, name, address, phone, ` + metaColumns + `
		FROM centers
		WHERE id = $1 AND NOT is_deleted
	`

	var (
		c    directory.Center
		cID  string
		meta rowMeta
	)
	dest := append([]interface{}{&cID, &c.Name, &c.Address, &c.Phone}, meta.fields()...)
	if err := r.db.QueryRow(ctx, query, id.String()).Scan(dest...); err != nil {
		if IsNoRows(err) {
			return nil, directory.ErrCenterNotFound
		}
		return nil, fmt.Errorf("failed to get center: %w", err)
	}
	c.ID = shared.TenantID(cID)
	meta.apply(&c.Provenance, &c.SoftDelete)
	return &c, nil
}

// List returns centers with pagination.
func (r *CenterRepository) List(ctx context.Context, opts shared.ListOptions) ([]*directory.Center, error) {
	opts = opts.Normalize()
	query := `
		SELECT id, name, address, phone, ` + metaColumns + `
		FROM centers
		WHERE TRUE` + deletedPredicate(opts) + `
		ORDER BY name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list centers: %w", err)
	}
	defer rows.Close()

	var centers []*directory.Center
	for rows.Next() {
		var (
			c    directory.Center
			cID  string
			meta rowMeta
		)
		dest := append([]interface{}{&cID, &c.Name, &c.Address, &c.Phone}, meta.fields()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan center: %w", err)
		}
		c.ID = shared.TenantID(cID)
		meta.apply(&c.Provenance, &c.SoftDelete)
		centers = append(centers, &c)
	}
	return centers, rows.Err()
}

// Archive soft-deletes a center.
func (r *CenterRepository) Archive(ctx context.Context, id shared.TenantID, by shared.ActorID) error {
	return archiveRow(ctx, r.db, "centers", id.String(), by, directory.ErrCenterNotFound)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements directory.StudentRepository for PostgreSQL.
type StudentRepository struct {
	db Querier
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(db Querier) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, s *directory.Student) error {
	query := `
		INSERT INTO students (id, center_id, full_name, phone, enrolled_at, ` + metaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	args := append(
		[]interface{}{s.ID, s.CenterID.String(), s.FullName, s.Phone, s.EnrolledAt},
		metaArgs(s.Provenance, s.SoftDelete)...,
	)
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("directory", "CreateStudent", shared.ErrAlreadyExists, "student already exists")
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

func (r *StudentRepository) scanStudent(scan func(dest ...interface{}) error) (*directory.Student, error) {
	var (
		s        directory.Student
		centerID string
		meta     rowMeta
	)
	dest := append(
		[]interface{}{&s.ID, &centerID, &s.FullName, &s.Phone, &s.EnrolledAt},
		meta.fields()...,
	)
	if err := scan(dest...); err != nil {
		return nil, err
	}
	s.CenterID = shared.TenantID(centerID)
	meta.apply(&s.Provenance, &s.SoftDelete)
	return &s, nil
}

// GetByID returns a student by ID, excluding archived rows.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*directory.Student, error) {
	query := `
		SELECT id, center_id, full_name, phone, enrolled_at, ` + metaColumns + `
		FROM students
		WHERE id = $1 AND NOT is_deleted
	`

	s, err := r.scanStudent(r.db.QueryRow(ctx, query, id).Scan)
	if err != nil {
		if IsNoRows(err) {
			return nil, directory.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// ListByCenter returns students of one center with pagination.
func (r *StudentRepository) ListByCenter(ctx context.Context, centerID shared.TenantID, opts shared.ListOptions) ([]*directory.Student, error) {
	opts = opts.Normalize()
	query := `
		SELECT id, center_id, full_name, phone, enrolled_at, ` + metaColumns + `
		FROM students
		WHERE center_id = $1` + deletedPredicate(opts) + `
		ORDER BY full_name
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, centerID.String(), opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*directory.Student
	for rows.Next() {
		s, err := r.scanStudent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// Archive soft-deletes a student.
func (r *StudentRepository) Archive(ctx context.Context, id string, by shared.ActorID) error {
	return archiveRow(ctx, r.db, "students", id, by, directory.ErrStudentNotFound)
}

// ══════════════════════════════════════════════════════════════════════════════
// FACULTY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// FacultyRepository implements directory.FacultyRepository for PostgreSQL.
type FacultyRepository struct {
	db Querier
}

// NewFacultyRepository creates a new FacultyRepository.
func NewFacultyRepository(db Querier) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// Create persists a new faculty member.
func (r *FacultyRepository) Create(ctx context.Context, f *directory.Faculty) error {
	query := `
		INSERT INTO faculty (id, center_id, full_name, actor_id, ` + metaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	args := append(
		[]interface{}{f.ID, f.CenterID.String(), f.FullName, f.ActorID.String()},
		metaArgs(f.Provenance, f.SoftDelete)...,
	)
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("directory", "CreateFaculty", shared.ErrAlreadyExists, "faculty member already exists")
		}
		return fmt.Errorf("failed to create faculty: %w", err)
	}
	return nil
}

func (r *FacultyRepository) scanFaculty(scan func(dest ...interface{}) error) (*directory.Faculty, error) {
	var (
		f        directory.Faculty
		centerID string
		actorID  string
		meta     rowMeta
	)
	dest := append(
		[]interface{}{&f.ID, &centerID, &f.FullName, &actorID},
		meta.fields()...,
	)
	if err := scan(dest...); err != nil {
		return nil, err
	}
	f.CenterID = shared.TenantID(centerID)
	f.ActorID = shared.ActorID(actorID)
	meta.apply(&f.Provenance, &f.SoftDelete)
	return &f, nil
}

// GetByID returns a faculty member by ID, excluding archived rows.
func (r *FacultyRepository) GetByID(ctx context.Context, id string) (*directory.Faculty, error) {
	query := `
		SELECT id, center_id, full_name, actor_id, ` + metaColumns + `
		FROM faculty
		WHERE id = $1 AND NOT is_deleted
	`

	f, err := r.scanFaculty(r.db.QueryRow(ctx, query, id).Scan)
	if err != nil {
		if IsNoRows(err) {
			return nil, directory.ErrFacultyNotFound
		}
		return nil, fmt.Errorf("failed to get faculty: %w", err)
	}
	return f, nil
}

// GetByActorID returns the faculty profile behind an authenticated identity.
func (r *FacultyRepository) GetByActorID(ctx context.Context, actorID shared.ActorID) (*directory.Faculty, error) {
	query := `
		SELECT id, center_id, full_name, actor_id, ` + metaColumns + `
		FROM faculty
		WHERE actor_id = $1 AND NOT is_deleted
	`

	f, err := r.scanFaculty(r.db.QueryRow(ctx, query, actorID.String()).Scan)
	if err != nil {
		if IsNoRows(err) {
			return nil, directory.ErrFacultyNotFound
		}
		return nil, fmt.Errorf("failed to get faculty by actor: %w", err)
	}
	return f, nil
}

// ListByCenter returns faculty of one center with pagination.
func (r *FacultyRepository) ListByCenter(ctx context.Context, centerID shared.TenantID, opts shared.ListOptions) ([]*directory.Faculty, error) {
	opts = opts.Normalize()
	query := `
		SELECT id, center_id, full_name, actor_id, ` + metaColumns + `
		FROM faculty
		WHERE center_id = $1` + deletedPredicate(opts) + `
		ORDER BY full_name
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, centerID.String(), opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list faculty: %w", err)
	}
	defer rows.Close()

	var members []*directory.Faculty
	for rows.Next() {
		f, err := r.scanFaculty(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan faculty: %w", err)
		}
		members = append(members, f)
	}
	return members, rows.Err()
}

// Archive soft-deletes a faculty member.
func (r *FacultyRepository) Archive(ctx context.Context, id string, by shared.ActorID) error {
	return archiveRow(ctx, r.db, "faculty", id, by, directory.ErrFacultyNotFound)
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SubjectRepository implements directory.SubjectRepository for PostgreSQL.
type SubjectRepository struct {
	db Querier
}

// NewSubjectRepository creates a new SubjectRepository.
func NewSubjectRepository(db Querier) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// Create persists a new subject.
func (r *SubjectRepository) Create(ctx context.Context, s *directory.Subject) error {
	query := `
		INSERT INTO subjects (id, name, total_topics, ` + metaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	args := append([]interface{}{s.ID, s.Name, s.TotalTopics}, metaArgs(s.Provenance, s.SoftDelete)...)
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("directory", "CreateSubject", shared.ErrAlreadyExists, "subject already exists")
		}
		return fmt.Errorf("failed to create subject: %w", err)
	}
	return nil
}

// GetByID returns a subject by ID, excluding archived rows.
func (r *SubjectRepository) GetByID(ctx context.Context, id string) (*directory.Subject, error) {
	query := `
		SELECT id, name, total_topics, ` + metaColumns + `
		FROM subjects
		WHERE id = $1 AND NOT is_deleted
	`

	var (
		s    directory.Subject
		meta rowMeta
	)
	dest := append([]interface{}{&s.ID, &s.Name, &s.TotalTopics}, meta.fields()...)
	if err := r.db.QueryRow(ctx, query, id).Scan(dest...); err != nil {
		if IsNoRows(err) {
			return nil, directory.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	meta.apply(&s.Provenance, &s.SoftDelete)
	return &s, nil
}

// List returns subjects with pagination.
func (r *SubjectRepository) List(ctx context.Context, opts shared.ListOptions) ([]*directory.Subject, error) {
	opts = opts.Normalize()
	query := `
		SELECT id, name, total_topics, ` + metaColumns + `
		FROM subjects
		WHERE TRUE` + deletedPredicate(opts) + `
		ORDER BY name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*directory.Subject
	for rows.Next() {
		var (
			s    directory.Subject
			meta rowMeta
		)
		dest := append([]interface{}{&s.ID, &s.Name, &s.TotalTopics}, meta.fields()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		meta.apply(&s.Provenance, &s.SoftDelete)
		subjects = append(subjects, &s)
	}
	return subjects, rows.Err()
}

// Archive soft-deletes a subject.
func (r *SubjectRepository) Archive(ctx context.Context, id string, by shared.ActorID) error {
	return archiveRow(ctx, r.db, "subjects", id, by, directory.ErrSubjectNotFound)
}

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AssignmentRepository implements directory.AssignmentRepository for PostgreSQL.
type AssignmentRepository struct {
	db Querier
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(db Querier) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create persists a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *directory.Assignment) error {
	query := `
		INSERT INTO assignments (
			id, center_id, student_id, subject_id, faculty_id,
			state, started_at, completed_at, ` + metaColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	args := append(
		[]interface{}{
			a.ID.String(), a.CenterID.String(), a.StudentID, a.SubjectID, a.FacultyID,
			a.State.String(), a.StartedAt, a.CompletedAt,
		},
		metaArgs(a.Provenance, a.SoftDelete)...,
	)
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("directory", "CreateAssignment", shared.ErrAlreadyExists, "assignment already exists")
		}
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) scanAssignment(scan func(dest ...interface{}) error) (*directory.Assignment, error) {
	var (
		a        directory.Assignment
		id       string
		centerID string
		state    string
		meta     rowMeta
	)
	dest := append(
		[]interface{}{
			&id, &centerID, &a.StudentID, &a.SubjectID, &a.FacultyID,
			&state, &a.StartedAt, &a.CompletedAt,
		},
		meta.fields()...,
	)
	if err := scan(dest...); err != nil {
		return nil, err
	}
	a.ID = shared.AssignmentID(id)
	a.CenterID = shared.TenantID(centerID)
	a.State = directory.AssignmentState(state)
	meta.apply(&a.Provenance, &a.SoftDelete)
	return &a, nil
}

// GetByID returns an assignment by ID, excluding archived rows.
func (r *AssignmentRepository) GetByID(ctx context.Context, id shared.AssignmentID) (*directory.Assignment, error) {
	query := `
		SELECT id, center_id, student_id, subject_id, faculty_id,
			   state, started_at, completed_at, ` + metaColumns + `
		FROM assignments
		WHERE id = $1 AND NOT is_deleted
	`

	a, err := r.scanAssignment(r.db.QueryRow(ctx, query, id.String()).Scan)
	if err != nil {
		if IsNoRows(err) {
			return nil, directory.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// ListByCenter returns assignments of one center matching the filter.
func (r *AssignmentRepository) ListByCenter(ctx context.Context, centerID shared.TenantID, filter directory.AssignmentFilter, opts shared.ListOptions) ([]*directory.Assignment, error) {
	opts = opts.Normalize()

	var sb strings.Builder
	sb.WriteString(`
		SELECT id, center_id, student_id, subject_id, faculty_id,
			   state, started_at, completed_at, ` + metaColumns + `
		FROM assignments
		WHERE center_id = $1`)
	sb.WriteString(deletedPredicate(opts))

	args := []interface{}{centerID.String()}
	if filter.State != "" {
		args = append(args, filter.State.String())
		fmt.Fprintf(&sb, " AND state = $%d", len(args))
	}
	if filter.FacultyID != "" {
		args = append(args, filter.FacultyID)
		fmt.Fprintf(&sb, " AND faculty_id = $%d", len(args))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		fmt.Fprintf(&sb, " AND student_id = $%d", len(args))
	}

	args = append(args, opts.Limit, opts.Offset)
	fmt.Fprintf(&sb, " ORDER BY started_at LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*directory.Assignment
	for rows.Next() {
		a, err := r.scanAssignment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// Update persists lifecycle changes.
func (r *AssignmentRepository) Update(ctx context.Context, a *directory.Assignment) error {
	query := `
		UPDATE assignments SET
			state = $1,
			completed_at = $2,
			modified_at = $3,
			modified_by = $4
		WHERE id = $5 AND NOT is_deleted
	`

	result, err := r.db.Exec(ctx, query,
		a.State.String(),
		a.CompletedAt,
		a.ModifiedAt,
		a.ModifiedBy.String(),
		a.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return directory.ErrAssignmentNotFound
	}
	return nil
}

// Archive soft-deletes an assignment.
func (r *AssignmentRepository) Archive(ctx context.Context, id shared.AssignmentID, by shared.ActorID) error {
	return archiveRow(ctx, r.db, "assignments", id.String(), by, directory.ErrAssignmentNotFound)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTOR REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ActorRepository implements directory.ActorRepository for PostgreSQL.
type ActorRepository struct {
	db Querier
}

// NewActorRepository creates a new ActorRepository.
func NewActorRepository(db Querier) *ActorRepository {
	return &ActorRepository{db: db}
}

// Create persists a new actor.
func (r *ActorRepository) Create(ctx context.Context, a *directory.Actor) error {
	query := `
		INSERT INTO actors (id, email, role, center_id, password_hash, ` + metaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	args := append(
		[]interface{}{a.ID.String(), a.Email, a.Role.String(), a.CenterID.String(), a.PasswordHash},
		metaArgs(a.Provenance, a.SoftDelete)...,
	)
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("directory", "CreateActor", shared.ErrAlreadyExists, "actor already exists")
		}
		return fmt.Errorf("failed to create actor: %w", err)
	}
	return nil
}

func (r *ActorRepository) scanActor(scan func(dest ...interface{}) error) (*directory.Actor, error) {
	var (
		a        directory.Actor
		id       string
		role     string
		centerID string
		meta     rowMeta
	)
	dest := append(
		[]interface{}{&id, &a.Email, &role, &centerID, &a.PasswordHash},
		meta.fields()...,
	)
	if err := scan(dest...); err != nil {
		return nil, err
	}
	a.ID = shared.ActorID(id)
	a.Role = directory.Role(role)
	a.CenterID = shared.TenantID(centerID)
	meta.apply(&a.Provenance, &a.SoftDelete)
	return &a, nil
}

// GetByID returns an actor by ID, excluding archived rows.
func (r *ActorRepository) GetByID(ctx context.Context, id shared.ActorID) (*directory.Actor, error) {
	query := `
		SELECT id, email, role, center_id, password_hash, ` + metaColumns + `
		FROM actors
		WHERE id = $1 AND NOT is_deleted
	`

	a, err := r.scanActor(r.db.QueryRow(ctx, query, id.String()).Scan)
	if err != nil {
		if IsNoRows(err) {
			return nil, directory.ErrActorNotFound
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	return a, nil
}

// GetByEmail returns an actor by email, for the login path.
func (r *ActorRepository) GetByEmail(ctx context.Context, email string) (*directory.Actor, error) {
	query := `
		SELECT id, email, role, center_id, password_hash, ` + metaColumns + `
		FROM actors
		WHERE email = $1 AND NOT is_deleted
	`

	a, err := r.scanActor(r.db.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan)
	if err != nil {
		if IsNoRows(err) {
			return nil, directory.ErrActorNotFound
		}
		return nil, fmt.Errorf("failed to get actor by email: %w", err)
	}
	return a, nil
}

// Archive soft-deletes an actor.
func (r *ActorRepository) Archive(ctx context.Context, id shared.ActorID, by shared.ActorID) error {
	return archiveRow(ctx, r.db, "actors", id.String(), by, directory.ErrActorNotFound)
}
