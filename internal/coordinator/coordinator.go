// Package coordinator combines the frontier stores into atomic, consistent
// lifecycle transitions and exposes the worker-facing API.
package coordinator

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
	"github.com/JakeFAU/crawl-frontier/internal/metrics"
)

// wordDomain is the single queue key under which all waiting words live;
// words have no per-domain fairness requirement.
const wordDomain = "words"

// Config controls Coordinator behavior.
type Config struct {
	// EventTopic is the topic transition events publish to. Empty disables
	// publishing.
	EventTopic string
}

// Coordinator owns all writes to the status index and queue manager. Every
// operation that spans more than one store is serialized per entity ID by a
// striped lock, so concurrent callers acting on the same entity see
// all-or-nothing transitions while unrelated entities proceed in parallel.
type Coordinator struct {
	attrs     frontier.AttributeStore
	status    frontier.StatusIndex
	linkQueue frontier.QueueManager
	wordQueue frontier.QueueManager
	budget    frontier.BudgetLedger
	graph     frontier.WordGraph
	blacklist *frontier.Blacklist
	publisher frontier.Publisher
	clock     frontier.Clock
	cfg       Config
	logger    *zap.Logger

	locks [64]sync.Mutex
	// graphMu serializes word-graph mutations. The cycle walk crosses word
	// boundaries, so per-entity locks cannot protect it.
	graphMu sync.Mutex
}

// New constructs a Coordinator over the provided stores.
func New(
	attrs frontier.AttributeStore,
	status frontier.StatusIndex,
	linkQueue frontier.QueueManager,
	wordQueue frontier.QueueManager,
	budget frontier.BudgetLedger,
	graph frontier.WordGraph,
	blacklist *frontier.Blacklist,
	pub frontier.Publisher,
	clock frontier.Clock,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if blacklist == nil {
		blacklist = frontier.NewBlacklist(nil)
	}
	metrics.Init()
	return &Coordinator{
		attrs:     attrs,
		status:    status,
		linkQueue: linkQueue,
		wordQueue: wordQueue,
		budget:    budget,
		graph:     graph,
		blacklist: blacklist,
		publisher: pub,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Enqueue tracks a new entity as waiting and inserts it into its queue.
// Re-enqueuing an entity that is already waiting re-scores it in place; an
// entity in any other status is left untouched (it is already owned by a
// worker or finished).
func (c *Coordinator) Enqueue(ctx context.Context, kind frontier.Kind, id, domain string, priority float64) error {
	if kind == frontier.KindLink {
		if !c.blacklist.Allowed(id) {
			return frontier.ErrBlacklisted
		}
		if domain == "" {
			domain = frontier.DomainOf(id)
		}
		if domain == "" {
			return fmt.Errorf("enqueue %s: no domain derivable from %q", kind, id)
		}
	}

	unlock := c.lock(kind, id)
	defer unlock()

	current, err := c.status.GetStatus(ctx, kind, id)
	switch {
	case err == nil && current == frontier.StatusWaiting:
		// Idempotent re-enqueue: one queue entry, fresh score.
		if err := c.queueFor(kind).Insert(ctx, c.queueDomain(kind, domain), id, priority); err != nil {
			return fmt.Errorf("re-score %s %s: %w", kind, id, err)
		}
		return c.writePriority(ctx, kind, id, priority)
	case err == nil:
		c.logger.Debug("enqueue skipped, entity already tracked",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.String("status", string(current)),
		)
		return nil
	case err != frontier.ErrNotFound:
		return fmt.Errorf("read status for %s %s: %w", kind, id, err)
	}

	if kind == frontier.KindLink {
		if err := c.attrs.Set(ctx, kind, id, frontier.FieldDomain, domain); err != nil {
			return fmt.Errorf("write domain for %s: %w", id, err)
		}
	}
	if err := c.writePriority(ctx, kind, id, priority); err != nil {
		return err
	}
	if err := c.queueFor(kind).Insert(ctx, c.queueDomain(kind, domain), id, priority); err != nil {
		return fmt.Errorf("queue insert %s %s: %w", kind, id, err)
	}
	// The status write comes last: a failure before it leaves at worst a
	// queue entry with no status row, which the next Claim folds into a
	// normal processing transition.
	if err := c.status.SetStatus(ctx, kind, id, frontier.StatusWaiting); err != nil {
		return fmt.Errorf("set status waiting for %s %s: %w", kind, id, err)
	}

	metrics.ObserveEnqueue(string(kind))
	c.publish(ctx, kind, id, frontier.StatusWaiting, domain, priority)
	return nil
}

// Claim pops the best waiting entity and marks it processing. An empty
// domain claims across all domains under round-robin fairness. No waiting
// work returns ok=false, not an error.
func (c *Coordinator) Claim(ctx context.Context, kind frontier.Kind, domain string) (string, bool, error) {
	var (
		item frontier.Item
		ok   bool
		err  error
	)
	q := c.queueFor(kind)
	switch {
	case kind == frontier.KindWord:
		item, ok, err = q.PopHighest(ctx, wordDomain)
	case domain == "":
		item, ok, err = q.PopAny(ctx)
	default:
		item, ok, err = q.PopHighest(ctx, domain)
	}
	if err != nil {
		return "", false, fmt.Errorf("claim pop %s: %w", kind, err)
	}
	if !ok {
		metrics.ObserveClaim(string(kind), "empty")
		return "", false, nil
	}

	unlock := c.lock(kind, item.ID)
	defer unlock()

	// A concurrent Enqueue between the pop and the lock sees the entity
	// still waiting and re-inserts it; absorb that entry into this claim so
	// no second worker receives the same ID.
	if err := c.queueFor(kind).Remove(ctx, c.queueDomain(kind, item.Domain), item.ID); err != nil {
		return "", false, fmt.Errorf("claim cleanup %s %s: %w", kind, item.ID, err)
	}
	if err := c.status.SetStatus(ctx, kind, item.ID, frontier.StatusProcessing); err != nil {
		return "", false, fmt.Errorf("mark %s %s processing: %w", kind, item.ID, err)
	}
	metrics.ObserveClaim(string(kind), "claimed")
	c.publish(ctx, kind, item.ID, frontier.StatusProcessing, item.Domain, item.Score)
	return item.ID, true, nil
}

// Complete moves a processing entity to a terminal status and records the
// worker's attributes. Calling Complete on an unknown entity or one not in
// processing is a coordination bug and is surfaced as such.
func (c *Coordinator) Complete(ctx context.Context, kind frontier.Kind, id string, outcome frontier.Status, attrs map[string]string) error {
	if !outcome.Terminal() || !outcome.ValidFor(kind) {
		return fmt.Errorf("%w: %q is not a terminal %s status", frontier.ErrInvalidTransition, outcome, kind)
	}

	unlock := c.lock(kind, id)
	defer unlock()

	current, err := c.status.GetStatus(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("complete %s %s: %w", kind, id, err)
	}
	if current != frontier.StatusProcessing {
		return fmt.Errorf("%w: complete called in status %q", frontier.ErrInvalidTransition, current)
	}

	for field, value := range attrs {
		if err := c.attrs.Set(ctx, kind, id, field, value); err != nil {
			return fmt.Errorf("write attr %s for %s %s: %w", field, kind, id, err)
		}
	}

	// The queue entry goes before the terminal write. Claim normally
	// removed it already (this covers a loader that initialized processing
	// without a pop), and a failure anywhere up to the status write leaves
	// the entity in processing, where a retry or the stuck sweep recovers
	// it. The reverse order could strand a terminal entity in the queue.
	domain := c.domainOf(ctx, kind, id)
	if err := c.queueFor(kind).Remove(ctx, c.queueDomain(kind, domain), id); err != nil {
		return fmt.Errorf("queue cleanup for %s %s: %w", kind, id, err)
	}
	if err := c.status.SetStatus(ctx, kind, id, outcome); err != nil {
		return fmt.Errorf("set terminal status for %s %s: %w", kind, id, err)
	}

	metrics.ObserveComplete(string(kind), string(outcome))
	c.publish(ctx, kind, id, outcome, domain, 0)
	return nil
}

// Requeue returns an entity to waiting with a fresh priority. Valid only
// from a terminal failure status or from processing (worker crash/timeout).
func (c *Coordinator) Requeue(ctx context.Context, kind frontier.Kind, id string, priority float64) error {
	unlock := c.lock(kind, id)
	defer unlock()
	return c.requeueLocked(ctx, kind, id, priority)
}

func (c *Coordinator) requeueLocked(ctx context.Context, kind frontier.Kind, id string, priority float64) error {
	current, err := c.status.GetStatus(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("requeue %s %s: %w", kind, id, err)
	}
	if current != frontier.StatusProcessing && !current.Failure() {
		return fmt.Errorf("%w: requeue called in status %q", frontier.ErrInvalidTransition, current)
	}

	domain := c.domainOf(ctx, kind, id)
	if kind == frontier.KindLink && domain == "" {
		domain = frontier.DomainOf(id)
	}
	if err := c.writePriority(ctx, kind, id, priority); err != nil {
		return err
	}
	if err := c.queueFor(kind).Insert(ctx, c.queueDomain(kind, domain), id, priority); err != nil {
		return fmt.Errorf("requeue insert %s %s: %w", kind, id, err)
	}
	if err := c.status.SetStatus(ctx, kind, id, frontier.StatusWaiting); err != nil {
		return fmt.Errorf("requeue status for %s %s: %w", kind, id, err)
	}
	metrics.ObserveRequeue(string(kind))
	c.publish(ctx, kind, id, frontier.StatusWaiting, domain, priority)
	return nil
}

// ConsumeFollow atomically spends one unit of the link's follow budget and
// reports what remains. A zero return means discovery from this link must
// stop; the link itself may still be processed.
func (c *Coordinator) ConsumeFollow(ctx context.Context, linkID string) (int, error) {
	remaining, err := c.budget.Decrement(ctx, linkID)
	if err != nil {
		return 0, fmt.Errorf("consume follow for %s: %w", linkID, err)
	}
	if remaining == 0 {
		metrics.ObserveBudgetExhausted()
	}
	if err := c.attrs.Set(ctx, frontier.KindLink, linkID, frontier.FieldRemainingFollows, strconv.Itoa(remaining)); err != nil {
		return remaining, fmt.Errorf("write remaining follows for %s: %w", linkID, err)
	}
	return remaining, nil
}

// FollowsRemaining reads the link's follow budget without consuming it.
func (c *Coordinator) FollowsRemaining(ctx context.Context, linkID string) (int, error) {
	remaining, err := c.budget.Remaining(ctx, linkID)
	if err != nil {
		return 0, fmt.Errorf("read follow budget for %s: %w", linkID, err)
	}
	return remaining, nil
}

// ResetBudget restores the link's follow budget.
func (c *Coordinator) ResetBudget(ctx context.Context, linkID string, budget int) error {
	if err := c.budget.Reset(ctx, linkID, budget); err != nil {
		return fmt.Errorf("reset follow budget for %s: %w", linkID, err)
	}
	if err := c.attrs.Set(ctx, frontier.KindLink, linkID, frontier.FieldRemainingFollows, strconv.Itoa(budget)); err != nil {
		return fmt.Errorf("write remaining follows for %s: %w", linkID, err)
	}
	return nil
}

// SetAttributes writes a bag of attributes without touching lifecycle
// state. Importers use this for entities that are attribute bags only.
func (c *Coordinator) SetAttributes(ctx context.Context, kind frontier.Kind, id string, attrs map[string]string) error {
	unlock := c.lock(kind, id)
	defer unlock()
	for field, value := range attrs {
		if err := c.attrs.Set(ctx, kind, id, field, value); err != nil {
			return fmt.Errorf("write attr %s for %s %s: %w", field, kind, id, err)
		}
	}
	return nil
}

// Attribute reads one attribute field for reporting/export tooling.
func (c *Coordinator) Attribute(ctx context.Context, kind frontier.Kind, id, field string) (string, bool, error) {
	return c.attrs.Get(ctx, kind, id, field)
}

// Attributes reads the full attribute bag for an entity.
func (c *Coordinator) Attributes(ctx context.Context, kind frontier.Kind, id string) (map[string]string, error) {
	return c.attrs.All(ctx, kind, id)
}

// Status returns the entity's current lifecycle status.
func (c *Coordinator) Status(ctx context.Context, kind frontier.Kind, id string) (frontier.Status, error) {
	return c.status.GetStatus(ctx, kind, id)
}

// Members iterates the entities currently in one status.
func (c *Coordinator) Members(ctx context.Context, kind frontier.Kind, status frontier.Status) (frontier.MemberIterator, error) {
	return c.status.Members(ctx, kind, status)
}

func (c *Coordinator) queueFor(kind frontier.Kind) frontier.QueueManager {
	if kind == frontier.KindWord {
		return c.wordQueue
	}
	return c.linkQueue
}

func (c *Coordinator) queueDomain(kind frontier.Kind, domain string) string {
	if kind == frontier.KindWord {
		return wordDomain
	}
	return domain
}

func (c *Coordinator) domainOf(ctx context.Context, kind frontier.Kind, id string) string {
	if kind != frontier.KindLink {
		return ""
	}
	domain, _, err := c.attrs.Get(ctx, kind, id, frontier.FieldDomain)
	if err != nil {
		c.logger.Warn("domain lookup failed", zap.String("id", id), zap.Error(err))
		return ""
	}
	return domain
}

func (c *Coordinator) writePriority(ctx context.Context, kind frontier.Kind, id string, priority float64) error {
	value := strconv.FormatFloat(priority, 'f', -1, 64)
	if err := c.attrs.Set(ctx, kind, id, frontier.FieldPriority, value); err != nil {
		return fmt.Errorf("write priority for %s %s: %w", kind, id, err)
	}
	return nil
}

func (c *Coordinator) publish(ctx context.Context, kind frontier.Kind, id string, status frontier.Status, domain string, score float64) {
	if c.publisher == nil || c.cfg.EventTopic == "" {
		return
	}
	event := frontier.Event{
		ID:       uuid.NewString(),
		Kind:     kind,
		EntityID: id,
		Status:   status,
		Domain:   domain,
		Score:    score,
		At:       c.now(),
	}
	if _, err := c.publisher.Publish(ctx, c.cfg.EventTopic, event); err != nil {
		c.logger.Warn("event publish failed",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) now() time.Time {
	if c.clock != nil {
		return c.clock.Now()
	}
	return time.Now().UTC()
}

func (c *Coordinator) lock(kind frontier.Kind, id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(kind))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(id))
	m := &c.locks[h.Sum32()%uint32(len(c.locks))]
	m.Lock()
	return m.Unlock
}
