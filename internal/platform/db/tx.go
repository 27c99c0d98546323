package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by *pgxpool.Pool and pgx.Tx.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// ReadCommitted is used by units of work that serialise through advisory locks.
var ReadCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// ReadSnapshot gives multi-statement reads one consistent snapshot.
var ReadSnapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// MaxAttempts bounds RetryTx.
const MaxAttempts = 3

// WithTx executes fn within a transaction. The transaction is rolled back when
// fn returns an error or panics and committed otherwise.
func WithTx(ctx context.Context, conn Beginner, opts pgx.TxOptions, fn func(pgx.Tx) error) (err error) {
	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// RetryTx runs WithTx again while the server aborts it with a serialization
// failure or deadlock, up to MaxAttempts times. fn must be safe to re-run.
func RetryTx(ctx context.Context, conn Beginner, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err = WithTx(ctx, conn, opts, fn)
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// LockOwner takes a transaction scoped advisory lock for the given namespace
// and owner. The lock is released on commit or rollback.
func LockOwner(ctx context.Context, tx pgx.Tx, namespace, owner string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, namespace, owner); err != nil {
		return fmt.Errorf("platform/db: advisory lock %s: %w", namespace, err)
	}
	return nil
}
