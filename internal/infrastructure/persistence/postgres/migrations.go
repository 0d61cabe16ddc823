package postgres

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// Schema notes:
//   - All IDs are TEXT. Center-scoped rows carry a denormalized center_id so
//     every tenant read is one indexed predicate.
//   - Session in/out times are stored as minutes since midnight, matching the
//     domain representation. No timezone arithmetic happens in SQL.
//   - attendance_events and audit_entries are append-only; no code path
//     issues UPDATE or DELETE against them.
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_directory",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_attendance_ledger",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_audit_trail",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS centers (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	address     TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	created_by  TEXT NOT NULL,
	modified_at TIMESTAMPTZ NOT NULL,
	modified_by TEXT NOT NULL,
	is_deleted  BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at  TIMESTAMPTZ,
	deleted_by  TEXT
);

CREATE TABLE IF NOT EXISTS students (
	id          TEXT PRIMARY KEY,
	center_id   TEXT NOT NULL REFERENCES centers(id),
	full_name   TEXT NOT NULL,
	phone       TEXT NOT NULL DEFAULT '',
	enrolled_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	created_by  TEXT NOT NULL,
	modified_at TIMESTAMPTZ NOT NULL,
	modified_by TEXT NOT NULL,
	is_deleted  BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at  TIMESTAMPTZ,
	deleted_by  TEXT
);

CREATE INDEX IF NOT EXISTS idx_students_center ON students(center_id) WHERE NOT is_deleted;

CREATE TABLE IF NOT EXISTS faculty (
	id          TEXT PRIMARY KEY,
	center_id   TEXT NOT NULL REFERENCES centers(id),
	full_name   TEXT NOT NULL,
	actor_id    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	created_by  TEXT NOT NULL,
	modified_at TIMESTAMPTZ NOT NULL,
	modified_by TEXT NOT NULL,
	is_deleted  BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at  TIMESTAMPTZ,
	deleted_by  TEXT
);

CREATE INDEX IF NOT EXISTS idx_faculty_center ON faculty(center_id) WHERE NOT is_deleted;
CREATE INDEX IF NOT EXISTS idx_faculty_actor ON faculty(actor_id) WHERE NOT is_deleted;

CREATE TABLE IF NOT EXISTS subjects (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	total_topics INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL,
	created_by   TEXT NOT NULL,
	modified_at  TIMESTAMPTZ NOT NULL,
	modified_by  TEXT NOT NULL,
	is_deleted   BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at   TIMESTAMPTZ,
	deleted_by   TEXT
);

CREATE TABLE IF NOT EXISTS assignments (
	id           TEXT PRIMARY KEY,
	center_id    TEXT NOT NULL REFERENCES centers(id),
	student_id   TEXT NOT NULL REFERENCES students(id),
	subject_id   TEXT NOT NULL REFERENCES subjects(id),
	faculty_id   TEXT NOT NULL REFERENCES faculty(id),
	state        TEXT NOT NULL DEFAULT 'active',
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL,
	created_by   TEXT NOT NULL,
	modified_at  TIMESTAMPTZ NOT NULL,
	modified_by  TEXT NOT NULL,
	is_deleted   BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at   TIMESTAMPTZ,
	deleted_by   TEXT
);

CREATE INDEX IF NOT EXISTS idx_assignments_center_state ON assignments(center_id, state) WHERE NOT is_deleted;
CREATE INDEX IF NOT EXISTS idx_assignments_faculty ON assignments(faculty_id) WHERE NOT is_deleted;

CREATE TABLE IF NOT EXISTS actors (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	role          TEXT NOT NULL,
	center_id     TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	created_by    TEXT NOT NULL,
	modified_at   TIMESTAMPTZ NOT NULL,
	modified_by   TEXT NOT NULL,
	is_deleted    BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at    TIMESTAMPTZ,
	deleted_by    TEXT
);
`

const migration001Down = `
DROP TABLE IF EXISTS actors;
DROP TABLE IF EXISTS assignments;
DROP TABLE IF EXISTS subjects;
DROP TABLE IF EXISTS faculty;
DROP TABLE IF EXISTS students;
DROP TABLE IF EXISTS centers;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS attendance_events (
	id               TEXT PRIMARY KEY,
	assignment_id    TEXT NOT NULL REFERENCES assignments(id),
	center_id        TEXT NOT NULL REFERENCES centers(id),
	student_id       TEXT NOT NULL,
	faculty_id       TEXT NOT NULL,
	date             DATE NOT NULL,
	status           TEXT NOT NULL,
	in_minutes       INTEGER,
	out_minutes      INTEGER,
	duration_minutes INTEGER,
	topics           TEXT[] NOT NULL DEFAULT '{}',
	is_backdated     BOOLEAN NOT NULL DEFAULT FALSE,
	backdate_reason  TEXT NOT NULL DEFAULT '',
	notes            TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	created_by       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_center_date ON attendance_events(center_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_events_assignment_date ON attendance_events(assignment_id, date);
CREATE INDEX IF NOT EXISTS idx_events_student ON attendance_events(student_id);
CREATE INDEX IF NOT EXISTS idx_events_faculty ON attendance_events(faculty_id);
`

const migration002Down = `
DROP TABLE IF EXISTS attendance_events;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id           TEXT PRIMARY KEY,
	actor_id     TEXT NOT NULL,
	action       TEXT NOT NULL,
	entity_type  TEXT NOT NULL,
	entity_id    TEXT NOT NULL,
	tenant_id    TEXT NOT NULL DEFAULT '',
	before_state JSONB,
	after_state  JSONB,
	reason       TEXT NOT NULL DEFAULT '',
	ts           TIMESTAMPTZ NOT NULL,
	ip           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_entity_chain ON audit_entries(entity_type, entity_id, ts DESC);
CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_entries(tenant_id, ts DESC);
CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_entries(actor_id, ts DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS audit_entries;
`
