package cache

import (
	"testing"
	"time"
)

func TestLRUCacheSetGet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d,%v", v, ok)
	}

	// "a" was just used, so adding "c" evicts "b"
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry")
	}
	if n := c.CleanExpired(); n != 0 {
		// Get already removed it
		t.Fatalf("CleanExpired = %d, want 0", n)
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set(Key(ScopeMembers, "all"), 1)
	c.Set(Key(ScopeMembers, "active"), 2)
	c.Set(Key(ScopeRates, "1"), 3)

	if n := c.DeletePrefix(ScopeMembers + ":"); n != 2 {
		t.Fatalf("DeletePrefix removed %d, want 2", n)
	}
	if _, ok := c.Get(Key(ScopeRates, "1")); !ok {
		t.Fatalf("other scope should survive")
	}
	if _, ok := c.Get(Key(ScopeMembers, "all")); ok {
		t.Fatalf("scoped entry should be gone")
	}
}

func TestInvalidateScope(t *testing.T) {
	a := NewLRUCache[int](10, time.Minute)
	b := NewLRUCache[string](10, time.Minute)
	a.Set(Key(ScopePayments, "q1"), 1)
	a.Set(Key(ScopePayments, "q2"), 2)
	b.Set(Key(ScopePayments, "q1"), "x")
	b.Set(Key(ScopeMembers, "all"), "y")

	if n := InvalidateScope(ScopePayments, a, b); n != 3 {
		t.Fatalf("InvalidateScope removed %d, want 3", n)
	}
	if _, ok := b.Get(Key(ScopeMembers, "all")); !ok {
		t.Fatalf("unrelated scope should survive")
	}
}
