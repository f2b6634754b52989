package memory

import (
	"context"
	"sync"
)

// BudgetLedger tracks remaining-follow counters. Links without an explicit
// entry start at the configured default budget.
type BudgetLedger struct {
	mu            sync.Mutex
	remaining     map[string]int
	defaultBudget int
}

// NewBudgetLedger constructs a ledger with the given default budget.
func NewBudgetLedger(defaultBudget int) *BudgetLedger {
	if defaultBudget < 0 {
		defaultBudget = 0
	}
	return &BudgetLedger{
		remaining:     make(map[string]int),
		defaultBudget: defaultBudget,
	}
}

// Decrement consumes one follow, clamped at zero, and returns the new count.
func (l *BudgetLedger) Decrement(_ context.Context, id string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.remaining[id]
	if !ok {
		current = l.defaultBudget
	}
	if current > 0 {
		current--
	}
	l.remaining[id] = current
	return current, nil
}

// Remaining returns the current counter without consuming it.
func (l *BudgetLedger) Remaining(_ context.Context, id string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.remaining[id]
	if !ok {
		current = l.defaultBudget
	}
	return current, nil
}

// Reset sets the counter to the given budget, clamped at zero.
func (l *BudgetLedger) Reset(_ context.Context, id string, budget int) error {
	if budget < 0 {
		budget = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining[id] = budget
	return nil
}
