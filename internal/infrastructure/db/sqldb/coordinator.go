package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/infrastructure/metrics"
)

// ErrForeignExecutor is returned when Run receives a parent executor that this
// coordinator did not hand out.
var ErrForeignExecutor = errors.New("executor does not belong to this coordinator")

// Tx is the executor handed to a unit of work. It is valid only while that
// unit of work runs; afterwards every call fails with sql.ErrTxDone.
type Tx struct {
	tx   *sql.Tx
	db   *sql.DB
	seq  *atomic.Int64 // save-point counter shared by the whole tree
	name string        // save-point name, empty at top level
	done atomic.Bool
}

var _ ports.Executor = (*Tx)(nil)

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if t.done.Load() {
		return nil, sql.ErrTxDone
	}
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if t.done.Load() {
		return nil, sql.ErrTxDone
	}
	return t.tx.QueryContext(ctx, query, args...)
}

// Coordinator implements ports.TxCoordinator over database/sql. Nested runs
// are mapped onto SAVEPOINT / RELEASE / ROLLBACK TO, which both SQLite and
// MySQL support.
type Coordinator struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ ports.TxCoordinator = (*Coordinator)(nil)

func NewCoordinator(db *sql.DB, log zerolog.Logger) *Coordinator {
	return &Coordinator{db: db, log: log}
}

// Ambient returns the connection pool.
func (c *Coordinator) Ambient() ports.Executor {
	return c.db
}

// Run executes fn in a new top-level transaction, or in a save-point when
// parent is a *Tx created by this coordinator.
func (c *Coordinator) Run(ctx context.Context, parent ports.Executor, fn ports.UnitOfWork) error {
	switch p := parent.(type) {
	case nil:
		return c.runTop(ctx, fn)
	case *sql.DB:
		if p != c.db {
			return ErrForeignExecutor
		}
		return c.runTop(ctx, fn)
	case *Tx:
		if p.db != c.db {
			return ErrForeignExecutor
		}
		return c.runSavepoint(ctx, p, fn)
	default:
		return fmt.Errorf("%w: %T", ErrForeignExecutor, parent)
	}
}

func (c *Coordinator) runTop(ctx context.Context, fn ports.UnitOfWork) error {
	sqlTx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	tx := &Tx{tx: sqlTx, db: c.db, seq: new(atomic.Int64)}

	committed := false
	defer func() {
		tx.done.Store(true)
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			c.log.Error().Err(rbErr).Msg("rollback transaction failed")
		}
		metrics.TransactionsTotal.WithLabelValues("top", "rollback").Inc()
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	tx.done.Store(true)
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	metrics.TransactionsTotal.WithLabelValues("top", "commit").Inc()
	return nil
}

func (c *Coordinator) runSavepoint(ctx context.Context, parent *Tx, fn ports.UnitOfWork) error {
	if parent.done.Load() {
		return sql.ErrTxDone
	}

	name := fmt.Sprintf("sp_%d", parent.seq.Add(1))
	if _, err := parent.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("open savepoint: %w", err)
	}
	child := &Tx{tx: parent.tx, db: parent.db, seq: parent.seq, name: name}

	released := false
	defer func() {
		child.done.Store(true)
		if released {
			return
		}
		// The parent may still commit, so undo only this save-point's effects.
		cleanupCtx := context.WithoutCancel(ctx)
		if _, err := parent.tx.ExecContext(cleanupCtx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
			c.log.Error().Err(err).Str("savepoint", name).Msg("rollback to savepoint failed")
		} else if _, err := parent.tx.ExecContext(cleanupCtx, "RELEASE SAVEPOINT "+name); err != nil {
			c.log.Error().Err(err).Str("savepoint", name).Msg("release savepoint failed")
		}
		metrics.TransactionsTotal.WithLabelValues("savepoint", "rollback").Inc()
	}()

	if err := fn(ctx, child); err != nil {
		return err
	}

	child.done.Store(true)
	if _, err := parent.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	released = true
	metrics.TransactionsTotal.WithLabelValues("savepoint", "commit").Inc()
	return nil
}
