package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// StatusIndex implements frontier.StatusIndex on frontier_statuses. The
// per-status membership sets are the indexed inverse of the single
// entity→status row, so a status change can never leave an entity in zero
// or two sets.
type StatusIndex struct {
	pool Pool
}

// NewStatusIndex constructs a StatusIndex over the pool.
func NewStatusIndex(pool Pool) *StatusIndex {
	return &StatusIndex{pool: pool}
}

// SetStatus upserts the single status row for the entity.
func (s *StatusIndex) SetStatus(ctx context.Context, kind frontier.Kind, id string, status frontier.Status) error {
	query := `
		INSERT INTO frontier_statuses (kind, entity_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, entity_id) DO UPDATE SET status = EXCLUDED.status;
	`
	if _, err := s.pool.Exec(ctx, query, kind, id, status); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// GetStatus returns the current status or frontier.ErrNotFound.
func (s *StatusIndex) GetStatus(ctx context.Context, kind frontier.Kind, id string) (frontier.Status, error) {
	query := `
		SELECT status FROM frontier_statuses
		WHERE kind = $1 AND entity_id = $2;
	`
	var raw string
	err := s.pool.QueryRow(ctx, query, kind, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return "", frontier.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get status: %w", err)
	}
	status, ok := frontier.ParseStatus(raw)
	if !ok {
		return "", fmt.Errorf("unknown stored status %q for %s %s", raw, kind, id)
	}
	return status, nil
}

// Members streams the entity IDs currently in one status.
func (s *StatusIndex) Members(ctx context.Context, kind frontier.Kind, status frontier.Status) (frontier.MemberIterator, error) {
	query := `
		SELECT entity_id FROM frontier_statuses
		WHERE kind = $1 AND status = $2
		ORDER BY entity_id;
	`
	rows, err := s.pool.Query(ctx, query, kind, status)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	return &rowIterator{rows: rows}, nil
}

// Count returns the size of one status set.
func (s *StatusIndex) Count(ctx context.Context, kind frontier.Kind, status frontier.Status) (int64, error) {
	query := `
		SELECT count(*) FROM frontier_statuses
		WHERE kind = $1 AND status = $2;
	`
	var n int64
	if err := s.pool.QueryRow(ctx, query, kind, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count status members: %w", err)
	}
	return n, nil
}

type rowIterator struct {
	rows pgx.Rows
	id   string
	err  error
}

func (it *rowIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}
	if err := it.rows.Scan(&it.id); err != nil {
		it.err = fmt.Errorf("scan member row: %w", err)
		return false
	}
	return true
}

func (it *rowIterator) ID() string { return it.id }

func (it *rowIterator) Err() error { return it.err }

func (it *rowIterator) Close() error {
	it.rows.Close()
	return nil
}
