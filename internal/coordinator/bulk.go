package coordinator

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
	"github.com/JakeFAU/crawl-frontier/internal/metrics"
)

// InitStatus is the bulk-load initialization path: it may place an entity
// directly into any status, bypassing the normal transition rules. Waiting
// entities also get their queue entry so they are claimable immediately.
func (c *Coordinator) InitStatus(
	ctx context.Context,
	kind frontier.Kind,
	id string,
	status frontier.Status,
	domain string,
	priority float64,
	attrs map[string]string,
) error {
	if !status.ValidFor(kind) {
		return fmt.Errorf("%w: %q is not a %s status", frontier.ErrInvalidTransition, status, kind)
	}
	if kind == frontier.KindLink && domain == "" {
		domain = frontier.DomainOf(id)
	}

	unlock := c.lock(kind, id)
	defer unlock()

	for field, value := range attrs {
		if err := c.attrs.Set(ctx, kind, id, field, value); err != nil {
			return fmt.Errorf("init attr %s for %s %s: %w", field, kind, id, err)
		}
	}
	if kind == frontier.KindLink && domain != "" {
		if err := c.attrs.Set(ctx, kind, id, frontier.FieldDomain, domain); err != nil {
			return fmt.Errorf("init domain for %s: %w", id, err)
		}
	}
	if err := c.writePriority(ctx, kind, id, priority); err != nil {
		return err
	}
	if status == frontier.StatusWaiting {
		if err := c.queueFor(kind).Insert(ctx, c.queueDomain(kind, domain), id, priority); err != nil {
			return fmt.Errorf("init queue insert %s %s: %w", kind, id, err)
		}
	}
	if err := c.status.SetStatus(ctx, kind, id, status); err != nil {
		return fmt.Errorf("init status for %s %s: %w", kind, id, err)
	}
	return nil
}

// RequeueStuck sweeps every entity stuck in processing back to waiting,
// preserving its last recorded priority. This is the crash-recovery path a
// deployment runs at startup, when no worker can still own a claim.
func (c *Coordinator) RequeueStuck(ctx context.Context, kind frontier.Kind) (int, error) {
	it, err := c.status.Members(ctx, kind, frontier.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("list processing %s: %w", kind, err)
	}
	defer func() {
		if cerr := it.Close(); cerr != nil {
			c.logger.Warn("member iterator close failed", zap.Error(cerr))
		}
	}()

	var ids []string
	for it.Next() {
		ids = append(ids, it.ID())
	}
	if err := it.Err(); err != nil {
		return 0, fmt.Errorf("iterate processing %s: %w", kind, err)
	}

	requeued := 0
	for _, id := range ids {
		priority := c.lastPriority(ctx, kind, id)
		unlock := c.lock(kind, id)
		err := c.requeueLocked(ctx, kind, id, priority)
		unlock()
		if err != nil {
			c.logger.Warn("stuck requeue failed",
				zap.String("kind", string(kind)),
				zap.String("id", id),
				zap.Error(err),
			)
			continue
		}
		requeued++
	}
	return requeued, nil
}

// Stats captures per-status counts plus queue occupancy for reporting.
type Stats struct {
	Links         map[frontier.Status]int64 `json:"links"`
	Words         map[frontier.Status]int64 `json:"words"`
	ActiveDomains int                       `json:"active_domains"`
}

// Snapshot gathers frontier statistics and refreshes the related gauges.
func (c *Coordinator) Snapshot(ctx context.Context) (Stats, error) {
	stats := Stats{
		Links: make(map[frontier.Status]int64),
		Words: make(map[frontier.Status]int64),
	}
	linkStatuses := []frontier.Status{
		frontier.StatusWaiting, frontier.StatusProcessing, frontier.StatusProcessed,
		frontier.StatusDownloadFailed, frontier.StatusExtractionFailed,
	}
	for _, st := range linkStatuses {
		n, err := c.status.Count(ctx, frontier.KindLink, st)
		if err != nil {
			return Stats{}, fmt.Errorf("count links %s: %w", st, err)
		}
		stats.Links[st] = n
	}
	wordStatuses := []frontier.Status{
		frontier.StatusWaiting, frontier.StatusProcessing,
		frontier.StatusApproved, frontier.StatusRejected,
	}
	for _, st := range wordStatuses {
		n, err := c.status.Count(ctx, frontier.KindWord, st)
		if err != nil {
			return Stats{}, fmt.Errorf("count words %s: %w", st, err)
		}
		stats.Words[st] = n
	}
	domains, err := c.linkQueue.ActiveDomains(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list active domains: %w", err)
	}
	stats.ActiveDomains = len(domains)

	metrics.SetWaitingLinks(stats.Links[frontier.StatusWaiting])
	metrics.SetActiveDomains(stats.ActiveDomains)
	return stats, nil
}

func (c *Coordinator) lastPriority(ctx context.Context, kind frontier.Kind, id string) float64 {
	raw, ok, err := c.attrs.Get(ctx, kind, id, frontier.FieldPriority)
	if err != nil || !ok {
		return 0
	}
	p, perr := strconv.ParseFloat(raw, 64)
	if perr != nil {
		return 0
	}
	return p
}
