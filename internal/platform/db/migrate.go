package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the embedded DDL.
func Schema() string {
	return schemaSQL
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("platform/db: migrate: %w", err)
	}
	return nil
}
