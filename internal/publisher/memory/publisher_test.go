package memory

import (
	"context"
	"testing"

	"github.com/JakeFAU/crawl-frontier/internal/frontier"
)

func TestPublisherCapturesTypedEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	ctx := context.Background()

	ev := frontier.Event{
		Kind:     frontier.KindLink,
		EntityID: "https://example.com/1",
		Status:   frontier.StatusWaiting,
		Domain:   "example.com",
	}
	id, err := pub.Publish(ctx, "frontier-events", ev)
	if err != nil || id != "memory-1" {
		t.Fatalf("Publish() = %q, %v, want memory-1", id, err)
	}
	// Payloads that are not transition events are still kept, as Raw only.
	id, err = pub.Publish(ctx, "frontier-events", "opaque")
	if err != nil || id != "memory-2" {
		t.Fatalf("Publish() = %q, %v, want memory-2", id, err)
	}

	events := pub.Events()
	if len(events) != 2 {
		t.Fatalf("Events() returned %d records, want 2", len(events))
	}
	if events[0].Event.EntityID != "https://example.com/1" || events[0].Event.Status != frontier.StatusWaiting {
		t.Fatalf("Events()[0].Event = %+v, want the published transition", events[0].Event)
	}
	if events[1].Event.EntityID != "" || events[1].Raw != "opaque" {
		t.Fatalf("Events()[1] = %+v, want untyped payload in Raw only", events[1])
	}
}
