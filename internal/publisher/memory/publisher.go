// Package memory records frontier events in process, standing in for the
// broker in tests and in single-node deployments that run without Pub/Sub.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

// Published is one recorded publish call. Event is populated when the payload
// was a frontier transition event; Raw always holds the payload as sent.
type Published struct {
	Topic string
	Event frontier.Event
	Raw   any
}

// Publisher keeps every published payload for later inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []Published
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the payload and returns a sequential pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	rec := Published{Topic: topic, Raw: payload}
	if ev, ok := payload.(frontier.Event); ok {
		rec.Event = ev
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, rec)
	return fmt.Sprintf("memory-%d", len(p.events)), nil
}

// Events returns a copy of everything published so far, in publish order.
func (p *Publisher) Events() []Published {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Published, len(p.events))
	copy(out, p.events)
	return out
}
