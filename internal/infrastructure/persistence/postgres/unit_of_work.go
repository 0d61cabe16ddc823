package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/learnledger/attendance-hub/internal/application/command"
	"github.com/learnledger/attendance-hub/internal/domain/attendance"
	"github.com/learnledger/attendance-hub/internal/domain/audit"
	"github.com/learnledger/attendance-hub/internal/domain/directory"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// One pgx transaction backs every repository handed to the command. The
// ledger write and its audit counterpart either both commit or both roll
// back; there is no code path where one lands without the other.
// ══════════════════════════════════════════════════════════════════════════════

// TxManager implements command.UnitOfWorkFactory over a pgx connection pool.
type TxManager struct {
	conn *Connection
}

// NewTxManager creates a new TxManager.
func NewTxManager(conn *Connection) *TxManager {
	return &TxManager{conn: conn}
}

// WithinTx begins a transaction, runs fn against transaction-scoped
// repositories, and commits when fn returns nil.
func (m *TxManager) WithinTx(ctx context.Context, fn func(uow command.UnitOfWork) error) error {
	return m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(&txUnitOfWork{tx: tx})
	})
}

// txUnitOfWork exposes repositories bound to one transaction.
type txUnitOfWork struct {
	tx pgx.Tx
}

func (u *txUnitOfWork) Events() attendance.EventStore { return NewEventStore(u.tx) }

func (u *txUnitOfWork) Audit() audit.Recorder { return NewAuditRepository(u.tx) }

func (u *txUnitOfWork) Assignments() directory.AssignmentRepository {
	return NewAssignmentRepository(u.tx)
}

func (u *txUnitOfWork) Centers() directory.CenterRepository { return NewCenterRepository(u.tx) }

func (u *txUnitOfWork) Students() directory.StudentRepository { return NewStudentRepository(u.tx) }

func (u *txUnitOfWork) Faculty() directory.FacultyRepository { return NewFacultyRepository(u.tx) }

func (u *txUnitOfWork) Subjects() directory.SubjectRepository { return NewSubjectRepository(u.tx) }

func (u *txUnitOfWork) Actors() directory.ActorRepository { return NewActorRepository(u.tx) }
