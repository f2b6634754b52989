// Package postgres provides Postgres-backed frontier store implementations.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool the stores use; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Connect builds a pgx connection pool from the DSN.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// Schema creates the frontier tables when they do not exist yet.
const Schema = `
CREATE TABLE IF NOT EXISTS frontier_attributes (
	kind TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (kind, entity_id, field)
);

CREATE TABLE IF NOT EXISTS frontier_statuses (
	kind TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	status TEXT NOT NULL,
	PRIMARY KEY (kind, entity_id)
);
CREATE INDEX IF NOT EXISTS frontier_statuses_by_status
	ON frontier_statuses (kind, status);

CREATE TABLE IF NOT EXISTS frontier_queue (
	kind TEXT NOT NULL,
	domain TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	seq BIGINT GENERATED ALWAYS AS IDENTITY,
	PRIMARY KEY (kind, domain, entity_id)
);
CREATE INDEX IF NOT EXISTS frontier_queue_order
	ON frontier_queue (kind, domain, score DESC, seq ASC);

CREATE TABLE IF NOT EXISTS frontier_budgets (
	entity_id TEXT PRIMARY KEY,
	remaining INTEGER NOT NULL CHECK (remaining >= 0)
);

CREATE TABLE IF NOT EXISTS frontier_word_parents (
	word TEXT PRIMARY KEY,
	parent TEXT NOT NULL
);
`

// EnsureSchema applies the frontier schema.
func EnsureSchema(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply frontier schema: %w", err)
	}
	return nil
}
