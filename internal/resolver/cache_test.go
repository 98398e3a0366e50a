// internal/resolver/cache_test.go
//
// Unit-tests for the resolution cache: TTL split between positive and
// negative entries, lazy expiry on read, and explicit invalidation.
//
// Run: go test ./internal/resolver -v

package resolver

import (
	"sync"
	"testing"
	"time"
)

func TestCachePositiveHit(t *testing.T) {
	c := NewCache(time.Minute, time.Second, 100)
	defer c.Close()

	c.Put("example.com", &Result{SiteID: 1, Subdomain: "acme"})

	res, ok := c.Get("example.com")
	if !ok {
		t.Fatal("expected hit")
	}
	if res == nil || res.Subdomain != "acme" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewCache(time.Minute, time.Second, 100)
	defer c.Close()

	if _, ok := c.Get("nobody.example"); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestCacheNegativeEntry(t *testing.T) {
	c := NewCache(time.Minute, time.Minute, 100)
	defer c.Close()

	c.Put("typo.example", nil)

	res, ok := c.Get("typo.example")
	if !ok {
		t.Fatal("expected negative hit")
	}
	if res != nil {
		t.Fatalf("negative entry must carry nil result, got %+v", res)
	}
}

// Negative entries use the shorter TTL and vanish on read once expired.
func TestCacheNegativeExpiresBeforePositive(t *testing.T) {
	c := NewCache(time.Minute, 20*time.Millisecond, 100)
	defer c.Close()

	c.Put("pos.example", &Result{SiteID: 1, Subdomain: "pos"})
	c.Put("neg.example", nil)

	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get("neg.example"); ok {
		t.Fatal("negative entry should have expired")
	}
	if _, ok := c.Get("pos.example"); !ok {
		t.Fatal("positive entry should still be live")
	}
}

func TestCachePositiveExpiry(t *testing.T) {
	c := NewCache(20*time.Millisecond, 10*time.Millisecond, 100)
	defer c.Close()

	c.Put("example.com", &Result{SiteID: 1, Subdomain: "acme"})
	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get("example.com"); ok {
		t.Fatal("positive entry should have expired")
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(time.Minute, time.Minute, 100)
	defer c.Close()

	c.Put("a.example", &Result{SiteID: 1, Subdomain: "a"})
	c.Put("b.example", &Result{SiteID: 2, Subdomain: "b"})

	c.Invalidate("a.example")

	if _, ok := c.Get("a.example"); ok {
		t.Fatal("a.example should be gone")
	}
	if _, ok := c.Get("b.example"); !ok {
		t.Fatal("b.example must survive a single-key invalidation")
	}
}

func TestCacheInvalidateAll(t *testing.T) {
	c := NewCache(time.Minute, time.Minute, 100)
	defer c.Close()

	c.Put("a.example", &Result{SiteID: 1, Subdomain: "a"})
	c.Put("b.example", nil)

	c.InvalidateAll()

	if _, ok := c.Get("a.example"); ok {
		t.Fatal("positive entry survived InvalidateAll")
	}
	if _, ok := c.Get("b.example"); ok {
		t.Fatal("negative entry survived InvalidateAll")
	}
	if n := c.Len(); n != 0 {
		t.Fatalf("Len() = %d after InvalidateAll, want 0", n)
	}
}

// Overwriting an entry must not corrupt it; readers racing writers and
// invalidations must always see a whole entry or none.  Run with -race.
func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache(time.Minute, time.Minute, 100)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Put("hot.example", &Result{SiteID: 1, Subdomain: "hot"})
				if res, ok := c.Get("hot.example"); ok && res != nil && res.Subdomain != "hot" {
					t.Error("torn read")
					return
				}
				if j%50 == 0 {
					c.InvalidateAll()
				}
			}
		}()
	}
	wg.Wait()
}
