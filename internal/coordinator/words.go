package coordinator

import (
	"context"
	"fmt"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// AddWord tracks a candidate search term. The parent records which word it
// was derived from; legacy "None" sentinels are normalized to the absent
// relation before anything is stored. Adding an already-tracked word only
// re-scores it, mirroring Enqueue.
func (c *Coordinator) AddWord(ctx context.Context, word, parent string, priority float64) error {
	parent, hasParent := frontier.NormalizeParent(parent)
	if hasParent && parent == word {
		return frontier.ErrCycle
	}

	if err := c.Enqueue(ctx, frontier.KindWord, word, "", priority); err != nil {
		return err
	}
	if !hasParent {
		return nil
	}
	if err := c.SetWordParent(ctx, word, parent); err != nil {
		return err
	}
	return nil
}

// SetWordParent records the derivation relation between two words. The
// graph rejects the link, leaving itself unchanged, when it would create a
// cycle or the chain is deeper than the configured bound. Mutations hold
// the graph mutex for the whole check-then-write, so two links that are
// individually acyclic cannot interleave into a cycle.
func (c *Coordinator) SetWordParent(ctx context.Context, word, parent string) error {
	parent, hasParent := frontier.NormalizeParent(parent)
	if !hasParent {
		return fmt.Errorf("set parent for %q: empty parent", word)
	}
	c.graphMu.Lock()
	err := c.graph.SetParent(ctx, word, parent)
	c.graphMu.Unlock()
	if err != nil {
		return err
	}
	if err := c.attrs.Set(ctx, frontier.KindWord, word, frontier.FieldParent, parent); err != nil {
		return fmt.Errorf("write parent attr for %s: %w", word, err)
	}
	return nil
}

// WordParent returns the recorded parent of a word; false for roots.
func (c *Coordinator) WordParent(ctx context.Context, word string) (string, bool, error) {
	return c.graph.Parent(ctx, word)
}

// WordChain returns the ancestor chain of a word, root last.
func (c *Coordinator) WordChain(ctx context.Context, word string) ([]string, error) {
	return c.graph.Chain(ctx, word)
}
