package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// WordGraph implements frontier.WordGraph on frontier_word_parents. The
// walk-then-insert in SetParent is not atomic on its own; the coordinator
// holds a single graph mutex across every mutation, so two walks never
// interleave.
type WordGraph struct {
	pool     Pool
	maxDepth int
}

// NewWordGraph constructs a WordGraph with the given chain-depth bound.
func NewWordGraph(pool Pool, maxDepth int) *WordGraph {
	if maxDepth <= 0 {
		maxDepth = 64
	}
	return &WordGraph{pool: pool, maxDepth: maxDepth}
}

// SetParent records that word was derived from parent, rejecting cycles and
// over-deep chains without modifying the graph.
func (g *WordGraph) SetParent(ctx context.Context, word, parent string) error {
	if word == parent {
		return frontier.ErrCycle
	}
	current := parent
	for depth := 0; ; depth++ {
		if depth >= g.maxDepth {
			return frontier.ErrDepthExceeded
		}
		next, ok, err := g.Parent(ctx, current)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if next == word {
			return frontier.ErrCycle
		}
		current = next
	}

	query := `
		INSERT INTO frontier_word_parents (word, parent)
		VALUES ($1, $2)
		ON CONFLICT (word) DO UPDATE SET parent = EXCLUDED.parent;
	`
	if _, err := g.pool.Exec(ctx, query, word, parent); err != nil {
		return fmt.Errorf("set word parent: %w", err)
	}
	return nil
}

// Parent returns the recorded parent; the bool is false for roots.
func (g *WordGraph) Parent(ctx context.Context, word string) (string, bool, error) {
	query := `SELECT parent FROM frontier_word_parents WHERE word = $1;`
	var parent string
	err := g.pool.QueryRow(ctx, query, word).Scan(&parent)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read word parent: %w", err)
	}
	return parent, true, nil
}

// Chain returns the ancestor chain starting at word's parent, root last.
func (g *WordGraph) Chain(ctx context.Context, word string) ([]string, error) {
	var chain []string
	current := word
	for depth := 0; depth < g.maxDepth; depth++ {
		parent, ok, err := g.Parent(ctx, current)
		if err != nil {
			return nil, err
		}
		if !ok {
			return chain, nil
		}
		chain = append(chain, parent)
		current = parent
	}
	return chain, frontier.ErrDepthExceeded
}
