package memory

import (
	"context"
	"testing"
)

func TestQueuePopHighestOrdersByScoreThenArrival(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	ctx := context.Background()

	if err := q.Insert(ctx, "example.com", "low", 1.0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := q.Insert(ctx, "example.com", "first-high", 5.0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := q.Insert(ctx, "example.com", "second-high", 5.0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	want := []string{"first-high", "second-high", "low"}
	for _, expected := range want {
		item, ok, err := q.PopHighest(ctx, "example.com")
		if err != nil || !ok {
			t.Fatalf("PopHighest() = %v, %v, %v", item, ok, err)
		}
		if item.ID != expected {
			t.Fatalf("PopHighest() ID = %q, want %q", item.ID, expected)
		}
	}
	if _, ok, _ := q.PopHighest(ctx, "example.com"); ok {
		t.Fatal("expected empty domain after draining")
	}
}

func TestQueueInsertRescoresInPlace(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	ctx := context.Background()

	if err := q.Insert(ctx, "example.com", "a", 1.0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := q.Insert(ctx, "example.com", "b", 5.0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	// Re-score a above b; there must still be exactly two entries.
	if err := q.Insert(ctx, "example.com", "a", 9.0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	n, err := q.Len(ctx, "example.com")
	if err != nil || n != 2 {
		t.Fatalf("Len() = %d, %v, want 2", n, err)
	}
	item, ok, err := q.PopHighest(ctx, "example.com")
	if err != nil || !ok || item.ID != "a" || item.Score != 9.0 {
		t.Fatalf("PopHighest() = %+v, %v, %v, want a at 9.0", item, ok, err)
	}
}

func TestQueuePopAnyRotatesAcrossDomains(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	ctx := context.Background()

	// Domain a has far more waiting work than b, but rotation still
	// alternates between them.
	for _, id := range []string{"a1", "a2", "a3"} {
		if err := q.Insert(ctx, "a.com", id, 1.0); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if err := q.Insert(ctx, "b.com", "b1", 1.0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	var domains []string
	for {
		item, ok, err := q.PopAny(ctx)
		if err != nil {
			t.Fatalf("PopAny() error = %v", err)
		}
		if !ok {
			break
		}
		domains = append(domains, item.Domain)
	}
	want := []string{"a.com", "b.com", "a.com", "a.com"}
	if len(domains) != len(want) {
		t.Fatalf("PopAny() drained %d items, want %d", len(domains), len(want))
	}
	for i := range want {
		if domains[i] != want[i] {
			t.Fatalf("PopAny() order = %v, want %v", domains, want)
		}
	}
}

func TestQueueRemoveDropsEmptiedDomainFromRotation(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	ctx := context.Background()

	if err := q.Insert(ctx, "a.com", "a1", 1.0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := q.Insert(ctx, "b.com", "b1", 1.0); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := q.Remove(ctx, "a.com", "a1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	domains, err := q.ActiveDomains(ctx)
	if err != nil || len(domains) != 1 || domains[0] != "b.com" {
		t.Fatalf("ActiveDomains() = %v, %v, want [b.com]", domains, err)
	}
	// Removing an unknown entry is a no-op.
	if err := q.Remove(ctx, "a.com", "missing"); err != nil {
		t.Fatalf("Remove() unknown entry error = %v", err)
	}
}
