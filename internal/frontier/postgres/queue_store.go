package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// Queue implements frontier.QueueManager on frontier_queue. Pops use
// FOR UPDATE SKIP LOCKED inside a single DELETE ... RETURNING so concurrent
// claimers never receive the same row. Round-robin rotation walks domains
// in lexical order from an in-process cursor, wrapping at the end; the
// rotation order is deterministic for a given set of active domains.
type Queue struct {
	pool Pool
	kind frontier.Kind

	mu     sync.Mutex
	cursor string
}

// NewQueue constructs a Queue for one entity kind.
func NewQueue(pool Pool, kind frontier.Kind) *Queue {
	return &Queue{pool: pool, kind: kind}
}

// Insert adds or re-scores a waiting entry.
func (q *Queue) Insert(ctx context.Context, domain, id string, score float64) error {
	query := `
		INSERT INTO frontier_queue (kind, domain, entity_id, score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, domain, entity_id) DO UPDATE SET score = EXCLUDED.score;
	`
	if _, err := q.pool.Exec(ctx, query, q.kind, domain, id, score); err != nil {
		return fmt.Errorf("queue insert: %w", err)
	}
	return nil
}

// Remove drops an entry if present. The active-domain index is the set of
// distinct domains with rows, so emptying a domain removes it implicitly.
func (q *Queue) Remove(ctx context.Context, domain, id string) error {
	query := `
		DELETE FROM frontier_queue
		WHERE kind = $1 AND domain = $2 AND entity_id = $3;
	`
	if _, err := q.pool.Exec(ctx, query, q.kind, domain, id); err != nil {
		return fmt.Errorf("queue remove: %w", err)
	}
	return nil
}

// PopHighest removes and returns the best entry for one domain.
func (q *Queue) PopHighest(ctx context.Context, domain string) (frontier.Item, bool, error) {
	query := `
		DELETE FROM frontier_queue
		WHERE (kind, domain, entity_id) = (
			SELECT kind, domain, entity_id FROM frontier_queue
			WHERE kind = $1 AND domain = $2
			ORDER BY score DESC, seq ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING entity_id, score;
	`
	var item frontier.Item
	err := q.pool.QueryRow(ctx, query, q.kind, domain).Scan(&item.ID, &item.Score)
	if err == pgx.ErrNoRows {
		return frontier.Item{}, false, nil
	}
	if err != nil {
		return frontier.Item{}, false, fmt.Errorf("queue pop: %w", err)
	}
	item.Domain = domain
	return item, true, nil
}

// PopAny serves the next active domain after the rotation cursor.
func (q *Queue) PopAny(ctx context.Context) (frontier.Item, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Two passes cover the wrap-around: first the domains after the
	// cursor, then from the start. A domain drained between the domain
	// lookup and the pop just advances the cursor and retries.
	for attempt := 0; attempt < 2; attempt++ {
		after := q.cursor
		if attempt == 1 {
			after = ""
		}
		for {
			domain, ok, err := q.nextDomain(ctx, after)
			if err != nil {
				return frontier.Item{}, false, err
			}
			if !ok {
				break
			}
			item, popped, err := q.PopHighest(ctx, domain)
			if err != nil {
				return frontier.Item{}, false, err
			}
			if popped {
				q.cursor = domain
				return item, true, nil
			}
			after = domain
		}
	}
	return frontier.Item{}, false, nil
}

// ActiveDomains lists domains with at least one waiting entry.
func (q *Queue) ActiveDomains(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT domain FROM frontier_queue
		WHERE kind = $1
		ORDER BY domain;
	`
	rows, err := q.pool.Query(ctx, query, q.kind)
	if err != nil {
		return nil, fmt.Errorf("list active domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan domain row: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return domains, nil
}

// Len returns the number of waiting entries for one domain.
func (q *Queue) Len(ctx context.Context, domain string) (int, error) {
	query := `
		SELECT count(*) FROM frontier_queue
		WHERE kind = $1 AND domain = $2;
	`
	var n int
	if err := q.pool.QueryRow(ctx, query, q.kind, domain).Scan(&n); err != nil {
		return 0, fmt.Errorf("queue len: %w", err)
	}
	return n, nil
}

func (q *Queue) nextDomain(ctx context.Context, after string) (string, bool, error) {
	query := `
		SELECT domain FROM frontier_queue
		WHERE kind = $1 AND domain > $2
		ORDER BY domain
		LIMIT 1;
	`
	var domain string
	err := q.pool.QueryRow(ctx, query, q.kind, after).Scan(&domain)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("next active domain: %w", err)
	}
	return domain, true, nil
}
