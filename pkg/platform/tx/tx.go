// Package tx carries an open database transaction through the context so
// store methods can join a caller-managed transaction without changing
// their signatures.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx returns a context carrying the transaction.
func WithTx(ctx context.Context, txn *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey, txn)
}

// From extracts the transaction from the context, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	txn, ok := ctx.Value(txKey).(*sql.Tx)
	return txn, ok
}

// Runner executes a function as a single atomic unit. Stores that pick
// their executor via From join the same unit.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQL runs units inside database/sql transactions.
type SQL struct {
	db *sql.DB
}

// NewSQL constructs a Runner over the given database handle.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

// RunInTx begins a transaction, runs fn with the transaction in the
// context, and commits. Any error from fn rolls the whole unit back and is
// returned unwrapped so callers can match sentinel errors.
func (r *SQL) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(WithTx(ctx, txn)); err != nil {
		_ = txn.Rollback()
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Nop runs the function directly. Pairs with the in-memory stores, which
// apply each write immediately.
type Nop struct{}

func (Nop) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
