package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BudgetLedger implements frontier.BudgetLedger on frontier_budgets. The
// decrement happens in one upsert so concurrent consumers cannot push the
// counter below zero.
type BudgetLedger struct {
	pool          Pool
	defaultBudget int
}

// NewBudgetLedger constructs a ledger with the given default budget.
func NewBudgetLedger(pool Pool, defaultBudget int) *BudgetLedger {
	if defaultBudget < 0 {
		defaultBudget = 0
	}
	return &BudgetLedger{pool: pool, defaultBudget: defaultBudget}
}

// Decrement consumes one follow, clamped at zero, and returns the new count.
// Links without a row start from the default budget.
func (l *BudgetLedger) Decrement(ctx context.Context, id string) (int, error) {
	query := `
		INSERT INTO frontier_budgets (entity_id, remaining)
		VALUES ($1, GREATEST($2 - 1, 0))
		ON CONFLICT (entity_id) DO UPDATE
		SET remaining = GREATEST(frontier_budgets.remaining - 1, 0)
		RETURNING remaining;
	`
	var remaining int
	if err := l.pool.QueryRow(ctx, query, id, l.defaultBudget).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("decrement budget: %w", err)
	}
	return remaining, nil
}

// Remaining returns the current counter without consuming it.
func (l *BudgetLedger) Remaining(ctx context.Context, id string) (int, error) {
	query := `SELECT remaining FROM frontier_budgets WHERE entity_id = $1;`
	var remaining int
	err := l.pool.QueryRow(ctx, query, id).Scan(&remaining)
	if err == pgx.ErrNoRows {
		return l.defaultBudget, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read budget: %w", err)
	}
	return remaining, nil
}

// Reset sets the counter to the given budget, clamped at zero.
func (l *BudgetLedger) Reset(ctx context.Context, id string, budget int) error {
	if budget < 0 {
		budget = 0
	}
	query := `
		INSERT INTO frontier_budgets (entity_id, remaining)
		VALUES ($1, $2)
		ON CONFLICT (entity_id) DO UPDATE SET remaining = EXCLUDED.remaining;
	`
	if _, err := l.pool.Exec(ctx, query, id, budget); err != nil {
		return fmt.Errorf("reset budget: %w", err)
	}
	return nil
}
