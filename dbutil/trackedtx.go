package dbutil

import (
	"context"
	"database/sql"
)

// Tx is a transaction that remembers whether it is finished, so a deferred
// MaybeRollback is always safe.
type Tx struct {
	tx *sql.Tx
}

func (tt *Tx) Tx() *sql.Tx {
	return tt.tx
}

func NewTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (tt *Tx) MaybeRollback() {
	if tt.tx != nil {
		tt.tx.Rollback()
		tt.tx = nil
	}
}

func (tt *Tx) Commit() error {
	err := tt.tx.Commit()
	if err == nil {
		tt.tx = nil
	}
	return err
}

func (tt *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return tt.tx.QueryRowContext(ctx, query, args...)
}

func (tt *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return tt.tx.ExecContext(ctx, query, args...)
}

// InTx runs fn in a transaction, committing if fn returns nil.
func InTx(ctx context.Context, db *sql.DB, fn func(*Tx) error) error {
	tt, err := NewTx(ctx, db, nil)
	if err != nil {
		return err
	}
	defer tt.MaybeRollback()
	if err := fn(tt); err != nil {
		return err
	}
	return tt.Commit()
}

// ExpectOneRow reports whether exactly one row changed.
func ExpectOneRow(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
