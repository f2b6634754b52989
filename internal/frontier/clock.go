package frontier

import (
	"context"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Publisher emits frontier transition events to an external topic.
type Publisher interface {
	// Publish sends the payload and returns the broker-assigned message ID.
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Event is the payload published on frontier transitions.
type Event struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	EntityID string    `json:"entity_id"`
	Status   Status    `json:"status"`
	Domain   string    `json:"domain,omitempty"`
	Score    float64   `json:"score,omitempty"`
	At       time.Time `json:"at"`
}
