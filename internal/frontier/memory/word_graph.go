package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// WordGraph records parent→child word derivation as a forest. Cycle checks
// walk the ancestor chain of the proposed parent, bounded by maxDepth so a
// corrupt chain cannot hang the insert.
type WordGraph struct {
	mu       sync.RWMutex
	parents  map[string]string
	maxDepth int
}

// NewWordGraph constructs a WordGraph with the given chain-depth bound.
func NewWordGraph(maxDepth int) *WordGraph {
	if maxDepth <= 0 {
		maxDepth = 64
	}
	return &WordGraph{
		parents:  make(map[string]string),
		maxDepth: maxDepth,
	}
}

// SetParent records that word was derived from parent. The graph is left
// unchanged when the link would create a cycle or the ancestor chain of
// parent exceeds the depth bound.
func (g *WordGraph) SetParent(_ context.Context, word, parent string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if word == parent {
		return frontier.ErrCycle
	}
	current := parent
	for depth := 0; ; depth++ {
		if depth >= g.maxDepth {
			return frontier.ErrDepthExceeded
		}
		next, ok := g.parents[current]
		if !ok {
			break
		}
		if next == word {
			return frontier.ErrCycle
		}
		current = next
	}
	g.parents[word] = parent
	return nil
}

// Parent returns the recorded parent; the bool is false for roots.
func (g *WordGraph) Parent(_ context.Context, word string) (string, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	parent, ok := g.parents[word]
	return parent, ok, nil
}

// Chain returns the ancestor chain starting at word's parent, root last.
func (g *WordGraph) Chain(_ context.Context, word string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var chain []string
	current := word
	for depth := 0; depth < g.maxDepth; depth++ {
		parent, ok := g.parents[current]
		if !ok {
			return chain, nil
		}
		chain = append(chain, parent)
		current = parent
	}
	return chain, frontier.ErrDepthExceeded
}
