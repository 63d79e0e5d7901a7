package ports

import (
	"context"
	"database/sql"
)

// Executor is the execution context a store call runs in: either the ambient
// connection pool or an active transaction. Both *sql.DB and *sql.Tx satisfy it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// UnitOfWork is a function run by a TxCoordinator. The Executor it receives is
// valid only until the function returns and must not be shared with other
// goroutines.
type UnitOfWork func(ctx context.Context, tx Executor) error

// TxCoordinator runs units of work inside transactions.
type TxCoordinator interface {
	// Ambient returns the executor used outside of any transaction.
	Ambient() Executor

	// Run executes fn inside a transaction. With a nil or ambient parent a new
	// top-level transaction is opened and committed on success. With an active
	// transaction as parent a save-point is opened instead: its failure rolls
	// back only its own effects, and its success stays provisional until the
	// parent commits. Errors returned by fn are propagated unchanged after
	// rollback. Run never retries.
	Run(ctx context.Context, parent Executor, fn UnitOfWork) error
}
