package cache

import (
	"testing"
	"time"

	"finboard/internal/core"
	"finboard/internal/timeline"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string, int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(2 * time.Minute)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry returned")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestBucketCacheSatisfiesView(t *testing.T) {
	bc := NewBucketCache(8, time.Minute)
	txs := []core.Transaction{{PostedAt: core.NewDate(2024, 1, 1), Type: core.Income, Category: "Salary"}}
	v := timeline.NewView(nil, txs, timeline.WithBucketCache(bc))

	v.Chart()
	if bc.Size() == 0 {
		t.Fatal("Chart() did not populate the cache")
	}
	key := timeline.BucketKey{Version: v.Version(), Granularity: timeline.Quarter, Mode: timeline.ModeAll, Scope: timeline.AllKey}
	if _, ok := bc.Get(key); !ok {
		t.Errorf("no entry for %+v", key)
	}

	bc.Purge()
	if bc.Size() != 0 {
		t.Errorf("Size() after Purge = %d", bc.Size())
	}
}
