package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", "3") // evicts b, a was used more recently

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected a=1, got %q %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	now := time.Date(2022, 4, 13, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("x", 1)
	c.Set("y", 2)
	now = now.Add(2 * time.Second)
	c.Set("z", 3)

	if _, ok := c.Get("x"); ok {
		t.Fatal("expected x to be expired")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 expired entry (y), got %d", removed)
	}
	if v, ok := c.Get("z"); !ok || v != 3 {
		t.Fatalf("expected z=3, got %d %v", v, ok)
	}
}

func TestLRUCacheDeleteAndClear(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("expected overwrite, got %d", v)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a deleted")
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("cache must be usable after Clear")
	}
}

func TestManager(t *testing.T) {
	now := time.Date(2022, 4, 13, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)

	m := NewManager(nil)
	m.Register(c)
	now = now.Add(time.Minute)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()

	idle := NewManager(nil)
	idle.Stop()
}

func TestLRUCacheSetIfGeneration(t *testing.T) {
	c := NewLRUCache[[]int](10, time.Minute)

	gen := c.Generation()
	c.Clear() // a write lands while the value is being computed
	if c.SetIfGeneration("all", []int{1, 2, 3}, gen) {
		t.Fatal("value read before Clear must not be stored")
	}
	if _, ok := c.Get("all"); ok {
		t.Fatal("stale value was cached")
	}

	gen = c.Generation()
	if !c.SetIfGeneration("all", []int{1, 2, 3, 4}, gen) {
		t.Fatal("value for the current generation must be stored")
	}
	if v, ok := c.Get("all"); !ok || len(v) != 4 {
		t.Fatalf("got %v %v", v, ok)
	}
}
