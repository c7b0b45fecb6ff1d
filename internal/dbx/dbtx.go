// Package dbx holds the small database plumbing shared by the SQLite
// repositories: the DBTX interface that lets a repository run against
// either a plain connection or a transaction, and WithTx for the few
// places that need a read and a write to be atomic.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the query surface the repositories need. Satisfied by both
// *sql.DB and *sql.Tx, so repository methods compose into transactions
// without knowing about them.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when it returns an error or panics; a panic
// is re-raised after the rollback.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}
