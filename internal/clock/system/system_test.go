package system

import (
	"testing"
	"time"
)

func TestNowIsUTC(t *testing.T) {
	t.Parallel()

	got := New().Now()
	if got.Location() != time.UTC {
		t.Fatalf("Now() location = %v, want UTC", got.Location())
	}
}

func TestNowTracksWallClock(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC()
	got := clk.Now()
	after := time.Now().UTC()

	if got.Before(before.Add(-time.Second)) || got.After(after.Add(time.Second)) {
		t.Fatalf("Now() = %v, outside window [%v, %v]", got, before, after)
	}
	if second := clk.Now(); second.Before(got) {
		t.Fatalf("Now() went backwards: %v then %v", got, second)
	}
}
