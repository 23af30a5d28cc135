package cache

import (
	"errors"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *clock) {
	clk := &clock{t: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should be cached", k)
		}
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set("a", "1")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "2")

	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != "2" {
		t.Errorf("b = %q, %v", v, ok)
	}

	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_GetOrLoadAndPurge(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	calls := 0
	load := func() (string, error) {
		calls++
		return "loaded", nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		if err != nil || v != "loaded" {
			t.Fatalf("GetOrLoad() = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad("other", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Errorf("expected loader error, got %v", err)
	}
	if _, ok := c.Get("other"); ok {
		t.Error("failed load must not be cached")
	}

	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() after Purge = %d", c.Size())
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 3 {
		t.Errorf("Stats() = %d hits, %d misses; want 2, 3", hits, misses)
	}
}

func TestManager_Sweep(t *testing.T) {
	c, clk := newTestCache(10, time.Second)
	c.Set("a", "1")
	clk.t = clk.t.Add(2 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
