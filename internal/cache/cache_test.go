package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/ncastellanos/eventgate/internal/cache"
)

type snapshot struct {
	IDs []string `json:"ids"`
}

func TestMemoryRoundTrip(t *testing.T) {
	c := cache.NewMemory(time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", snapshot{IDs: []string{"a", "b"}})

	var got snapshot
	if !c.Get(ctx, "k", &got) {
		t.Fatalf("expected hit")
	}
	if len(got.IDs) != 2 || got.IDs[0] != "a" {
		t.Fatalf("got %+v", got)
	}

	c.Delete(ctx, "k")
	if c.Get(ctx, "k", &got) {
		t.Fatalf("expected miss after delete")
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := cache.NewMemory(10 * time.Millisecond)
	ctx := context.Background()

	c.Set(ctx, "k", snapshot{IDs: []string{"a"}})
	time.Sleep(25 * time.Millisecond)

	var got snapshot
	if c.Get(ctx, "k", &got) {
		t.Fatalf("expected expiry")
	}
}

// Distinct filter states must never share a key, a stale snapshot for one
// search can not answer for another.
func TestEventsListKeyDisambiguates(t *testing.T) {
	min := 10.0

	a := cache.EventsListKey(1, 10, "", "jazz", "", "", nil, nil, nil)
	b := cache.EventsListKey(1, 10, "", "teatro", "", "", nil, nil, nil)
	c := cache.EventsListKey(2, 10, "", "jazz", "", "", nil, nil, nil)
	d := cache.EventsListKey(1, 10, "", "jazz", "", "", &min, nil, nil)

	keys := map[string]bool{a: true, b: true, c: true, d: true}
	if len(keys) != 4 {
		t.Fatalf("expected 4 distinct keys, got %v", keys)
	}

	if a != cache.EventsListKey(1, 10, "", "JAZZ ", "", "", nil, nil, nil) {
		t.Fatalf("search normalization should fold case and whitespace")
	}
}
