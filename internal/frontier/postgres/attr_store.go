package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// AttributeStore implements frontier.AttributeStore on frontier_attributes.
type AttributeStore struct {
	pool Pool
}

// NewAttributeStore constructs an AttributeStore over the pool.
func NewAttributeStore(pool Pool) *AttributeStore {
	return &AttributeStore{pool: pool}
}

// Set upserts one field for the entity.
func (s *AttributeStore) Set(ctx context.Context, kind frontier.Kind, id, field, value string) error {
	query := `
		INSERT INTO frontier_attributes (kind, entity_id, field, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, entity_id, field) DO UPDATE SET value = EXCLUDED.value;
	`
	if _, err := s.pool.Exec(ctx, query, kind, id, field, value); err != nil {
		return fmt.Errorf("set attribute: %w", err)
	}
	return nil
}

// Get reads one field; the bool is false when the field is absent.
func (s *AttributeStore) Get(ctx context.Context, kind frontier.Kind, id, field string) (string, bool, error) {
	query := `
		SELECT value FROM frontier_attributes
		WHERE kind = $1 AND entity_id = $2 AND field = $3;
	`
	var value string
	err := s.pool.QueryRow(ctx, query, kind, id, field).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get attribute: %w", err)
	}
	return value, true, nil
}

// Delete removes one field; absent fields are a no-op.
func (s *AttributeStore) Delete(ctx context.Context, kind frontier.Kind, id, field string) error {
	query := `
		DELETE FROM frontier_attributes
		WHERE kind = $1 AND entity_id = $2 AND field = $3;
	`
	if _, err := s.pool.Exec(ctx, query, kind, id, field); err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}
	return nil
}

// All returns every field stored for the entity.
func (s *AttributeStore) All(ctx context.Context, kind frontier.Kind, id string) (map[string]string, error) {
	query := `
		SELECT field, value FROM frontier_attributes
		WHERE kind = $1 AND entity_id = $2;
	`
	rows, err := s.pool.Query(ctx, query, kind, id)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("scan attribute row: %w", err)
		}
		out[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes: %w", err)
	}
	return out, nil
}
