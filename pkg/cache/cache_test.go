package cache_test

import (
	"errors"
	"testing"

	"github.com/sandrolain/jqcore/pkg/cache"
)

func TestCacheDefaultCapacity(t *testing.T) {
	c := cache.New[int](0)
	if got := c.Capacity(); got != cache.DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", cache.DefaultCapacity, got)
	}
}

func TestCacheSetGet(t *testing.T) {
	c := cache.New[string](4)
	c.Set("a", "x")
	got, ok := c.Get("a")
	if !ok || got != "x" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.New[int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive")
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
}

func TestCacheGetOrCompute(t *testing.T) {
	c := cache.New[int](4)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", compute)
		if err != nil || v != 42 {
			t.Fatalf("GetOrCompute = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("compute called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrCompute("bad", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Fatal("errors must not be cached")
	}
}

func TestCacheClear(t *testing.T) {
	c := cache.New[int](4)
	c.Set("a", 1)
	c.Clear()
	if c.Len() != 0 {
		t.Fatal("expected empty cache after Clear")
	}
}
