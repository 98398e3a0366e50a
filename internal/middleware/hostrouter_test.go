// internal/middleware/hostrouter_test.go
//
// Unit-tests for the boundary router.
//
// Context
// -------
// Four behaviours matter here:
//
//   • system hosts (primary domain, www form, loopback) pass through
//     with no resolution work,
//   • a resolved custom domain 302s to the tenant namespace with the
//     path carried in ?path= and the original query kept verbatim,
//   • an unmapped host 302s to the platform landing page,
//   • a mapping-store outage fails open (pass through), never 5xx.
//
// Run: go test ./internal/middleware -v

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/siteforge-io/siteforge/internal/mapping"
	"github.com/siteforge-io/siteforge/internal/resolver"
)

// fakeStore satisfies resolver.Store with injectable results.
type fakeStore struct {
	mu    sync.Mutex
	calls int
	match *mapping.Match
	err   error
}

func (f *fakeStore) FindByHost(ctx context.Context, variants []string) (*mapping.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.match, f.err
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newRouter(t *testing.T, store *fakeStore) func(http.Handler) http.Handler {
	t.Helper()
	cache := resolver.NewCache(time.Minute, time.Minute, 100)
	t.Cleanup(cache.Close)
	res := resolver.New(store, cache, time.Second, nil)
	return HostRouter(res, "siteforge.io", "https://siteforge.io")
}

func TestHostRouterSystemHostPassThrough(t *testing.T) {
	store := &fakeStore{match: &mapping.Match{SiteID: 1, Subdomain: "acme"}}
	mw := newRouter(t, store)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, target := range []string{
		"http://siteforge.io/dashboard",
		"http://www.siteforge.io/",
		"http://localhost:8080/healthz",
		"http://127.0.0.1:8080/metrics",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rr := httptest.NewRecorder()
		mw(next).ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 pass-through", target, rr.Code)
		}
	}
	if n := store.callCount(); n != 0 {
		t.Fatalf("system hosts triggered %d store lookups", n)
	}
}

func TestHostRouterTenantRedirect(t *testing.T) {
	store := &fakeStore{match: &mapping.Match{SiteID: 1, Subdomain: "acme"}}
	mw := newRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/about/team?utm=x&b=2", nil)
	rr := httptest.NewRecorder()
	mw(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	want := "https://siteforge.io/site/acme?path=%2Fabout%2Fteam&utm=x&b=2"
	if got := rr.Header().Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func TestHostRouterTenantRedirectNoQuery(t *testing.T) {
	store := &fakeStore{match: &mapping.Match{SiteID: 1, Subdomain: "acme"}}
	mw := newRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "http://www.example.com/", nil)
	rr := httptest.NewRecorder()
	mw(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	want := "https://siteforge.io/site/acme?path=%2F"
	if got := rr.Header().Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func TestHostRouterUnmappedRedirectsToLanding(t *testing.T) {
	store := &fakeStore{} // no match
	mw := newRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "http://typo.example/whatever", nil)
	rr := httptest.NewRecorder()
	mw(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "https://siteforge.io/" {
		t.Fatalf("Location = %q, want landing", got)
	}
}

func TestHostRouterStoreErrorFailsOpen(t *testing.T) {
	store := &fakeStore{err: context.DeadlineExceeded}
	mw := newRouter(t, store)

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "http://live.example/page", nil)
	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)

	if !reached {
		t.Fatal("store failure must pass the request through")
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

// The same host resolved twice in a row routes identically, second time
// from cache.
func TestHostRouterIdempotent(t *testing.T) {
	store := &fakeStore{match: &mapping.Match{SiteID: 1, Subdomain: "acme"}}
	mw := newRouter(t, store)

	var locations []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "http://example.com/p", nil)
		rr := httptest.NewRecorder()
		mw(http.NotFoundHandler()).ServeHTTP(rr, req)
		locations = append(locations, rr.Header().Get("Location"))
	}
	if locations[0] != locations[1] {
		t.Fatalf("routing not idempotent: %q vs %q", locations[0], locations[1])
	}
	if n := store.callCount(); n != 1 {
		t.Fatalf("store queried %d times, want 1", n)
	}
}
