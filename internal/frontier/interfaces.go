package frontier

import "context"

// AttributeStore is generic kind→entity→field→value storage. Values are
// opaque strings; no validation happens here.
type AttributeStore interface {
	// Set writes one field, overwriting any previous value.
	Set(ctx context.Context, kind Kind, id, field, value string) error
	// Get reads one field; the bool is false when the field is absent.
	Get(ctx context.Context, kind Kind, id, field string) (string, bool, error)
	// Delete removes one field. Deleting an absent field is a no-op.
	Delete(ctx context.Context, kind Kind, id, field string) error
	// All returns every field stored for the entity.
	All(ctx context.Context, kind Kind, id string) (map[string]string, error)
}

// MemberIterator lazily walks the members of one status set. Callers must
// Close it; Err reports any failure encountered while iterating.
type MemberIterator interface {
	// Next advances to the next member, returning false when exhausted.
	Next() bool
	// ID returns the current member.
	ID() string
	// Err returns the first error hit during iteration.
	Err() error
	// Close releases iterator resources.
	Close() error
}

// StatusIndex maintains entity→status and the inverse per-status membership
// sets. An existing entity is a member of exactly one status set at all
// times; SetStatus moves membership atomically with respect to readers.
type StatusIndex interface {
	// SetStatus overwrites the current status, moving set membership.
	SetStatus(ctx context.Context, kind Kind, id string, status Status) error
	// GetStatus returns the current status or ErrNotFound.
	GetStatus(ctx context.Context, kind Kind, id string) (Status, error)
	// Members returns a restartable iterator over one status set.
	Members(ctx context.Context, kind Kind, status Status) (MemberIterator, error)
	// Count returns the size of one status set.
	Count(ctx context.Context, kind Kind, status Status) (int64, error)
}

// QueueManager keeps one priority-ordered waiting collection per domain plus
// the index of active domains. Higher score is served first; ties are FIFO
// by enqueue sequence so dequeue order is reproducible.
type QueueManager interface {
	// Insert adds or re-scores a waiting entry. Re-inserting an existing
	// entry updates its score in place without duplicating it.
	Insert(ctx context.Context, domain, id string, score float64) error
	// Remove drops an entry; removing the last entry of a domain removes
	// the domain from the active index in the same step.
	Remove(ctx context.Context, domain, id string) error
	// PopHighest removes and returns the best entry for one domain.
	// The bool is false when the domain has no waiting entries.
	PopHighest(ctx context.Context, domain string) (Item, bool, error)
	// PopAny removes and returns the best entry of the next active domain
	// under round-robin rotation, so no backlog starves the others.
	PopAny(ctx context.Context) (Item, bool, error)
	// ActiveDomains lists domains with at least one waiting entry.
	ActiveDomains(ctx context.Context) ([]string, error)
	// Len returns the number of waiting entries for one domain.
	Len(ctx context.Context, domain string) (int, error)
}

// BudgetLedger tracks the remaining-follow counter per link. A link whose
// counter reaches zero may still be processed but must not seed further
// link discovery.
type BudgetLedger interface {
	// Decrement atomically consumes one follow, clamped at zero, and
	// returns the new remaining count. Unknown links start at the
	// configured default budget.
	Decrement(ctx context.Context, id string) (int, error)
	// Remaining returns the current counter without consuming it.
	Remaining(ctx context.Context, id string) (int, error)
	// Reset sets the counter to the given budget.
	Reset(ctx context.Context, id string, budget int) error
}

// WordGraph tracks parent→child derivation between words. The relation is a
// forest: parent links must not form a cycle, and chains are bounded by a
// configured depth to stop traversal of a corrupt chain.
type WordGraph interface {
	// SetParent records that word was derived from parent. Fails with
	// ErrCycle if parent is reachable from word, or ErrDepthExceeded if
	// the existing chain is longer than the configured bound. On failure
	// the graph is left unchanged.
	SetParent(ctx context.Context, word, parent string) error
	// Parent returns the recorded parent; the bool is false for roots.
	Parent(ctx context.Context, word string) (string, bool, error)
	// Chain returns the ancestor chain starting at word's parent, root last.
	Chain(ctx context.Context, word string) ([]string, error)
}
