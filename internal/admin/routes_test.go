// internal/admin/routes_test.go
//
// Unit-tests for the operator endpoints using sqlmock and httptest.
//
// Run: go test ./internal/admin -v

package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/siteforge-io/siteforge/internal/mapping"
	"github.com/siteforge-io/siteforge/internal/resolver"
)

// fakeStore satisfies resolver.Store with a call counter, so tests can
// observe whether a mutation actually invalidated the cache.
type fakeStore struct {
	mu    sync.Mutex
	calls int
	match *mapping.Match
}

func (f *fakeStore) FindByHost(ctx context.Context, variants []string) (*mapping.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.match, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	handler http.Handler
	mock    sqlmock.Sqlmock
	store   *fakeStore
	res     *resolver.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := &fakeStore{match: &mapping.Match{SiteID: 5, Subdomain: "acme"}}
	cache := resolver.NewCache(time.Minute, time.Minute, 100)
	t.Cleanup(cache.Close)
	res := resolver.New(store, cache, time.Second, nil)

	return &fixture{
		handler: New(sqlx.NewDb(db, "sqlmock"), res).Routes(),
		mock:    mock,
		store:   store,
		res:     res,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body == "" {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rd)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestClearCache(t *testing.T) {
	f := newFixture(t)

	// Seed the cache, clear it, and confirm the next resolve re-queries.
	if _, err := f.res.Resolve(context.Background(), "example.com"); err != nil {
		t.Fatalf("seed resolve: %v", err)
	}

	rr := f.do(t, http.MethodPost, "/cache/clear", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Status    string `json:"status"`
		ClearedAt string `json:"cleared_at"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("status field = %q, want ok", resp.Status)
	}
	if _, err := time.Parse(time.RFC3339, resp.ClearedAt); err != nil {
		t.Fatalf("cleared_at %q not RFC3339: %v", resp.ClearedAt, err)
	}

	if _, err := f.res.Resolve(context.Background(), "example.com"); err != nil {
		t.Fatalf("resolve after clear: %v", err)
	}
	if n := f.store.callCount(); n != 2 {
		t.Fatalf("store queried %d times, want 2 (clear must evict)", n)
	}
}

func TestListDomains(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectQuery(`SELECT dm\.id, dm\.host`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "host", "site_id", "subdomain", "created_at", "updated_at"}).
			AddRow(1, "example.com", 5, "acme", now, now).
			AddRow(2, "www.example.com", 5, "acme", now, now))
	f.mock.ExpectQuery(`SELECT id, subdomain, custom_domain`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subdomain", "custom_domain"}).
			AddRow(6, "beta", "foo.org"))

	rr := f.do(t, http.MethodGet, "/domains", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Mappings []struct {
			Host      string `json:"host"`
			Subdomain string `json:"subdomain"`
		} `json:"mappings"`
		Legacy []struct {
			SiteID       uint64 `json:"site_id"`
			CustomDomain string `json:"custom_domain"`
		} `json:"legacy_custom_domains"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Mappings) != 2 || resp.Mappings[0].Subdomain != "acme" {
		t.Fatalf("unexpected mappings: %+v", resp.Mappings)
	}
	if len(resp.Legacy) != 1 || resp.Legacy[0].CustomDomain != "foo.org" {
		t.Fatalf("unexpected legacy rows: %+v", resp.Legacy)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreateMappingNormalizesAndInvalidates(t *testing.T) {
	f := newFixture(t)

	// Warm both variants so the invalidation is observable.
	_, _ = f.res.Resolve(context.Background(), "example.com")
	_, _ = f.res.Resolve(context.Background(), "www.example.com")
	warm := f.store.callCount()

	f.mock.ExpectExec(`INSERT INTO domain_mapping`).
		WithArgs("example.com", 5).
		WillReturnResult(sqlmock.NewResult(7, 1))

	rr := f.do(t, http.MethodPost, "/domains",
		`{"host":"HTTPS://Example.com:443/","site_id":5}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		ID   uint64 `json:"id"`
		Host string `json:"host"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != 7 || resp.Host != "example.com" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// Both variants must re-query after the mutation.
	_, _ = f.res.Resolve(context.Background(), "example.com")
	_, _ = f.res.Resolve(context.Background(), "www.example.com")
	if n := f.store.callCount(); n != warm+2 {
		t.Fatalf("store queried %d times after create, want %d", n, warm+2)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCreateMappingRejectsEmptyHost(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/domains", `{"host":"http://","site_id":5}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestUpdateMapping(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectQuery(`SELECT id, host, site_id, created_at, updated_at`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "host", "site_id", "created_at", "updated_at"}).
			AddRow(3, "old.example", 5, now, now))
	f.mock.ExpectExec(`UPDATE domain_mapping`).
		WithArgs("new.example", 5, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := f.do(t, http.MethodPut, "/domains/3", `{"host":"New.Example","site_id":5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestUpdateMappingNotFound(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`SELECT id, host, site_id, created_at, updated_at`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "host", "site_id", "created_at", "updated_at"}))

	rr := f.do(t, http.MethodPut, "/domains/99", `{"host":"x.example","site_id":5}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestDeleteMapping(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectQuery(`SELECT id, host, site_id, created_at, updated_at`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "host", "site_id", "created_at", "updated_at"}).
			AddRow(3, "gone.example", 5, now, now))
	f.mock.ExpectExec(`DELETE FROM domain_mapping`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := f.do(t, http.MethodDelete, "/domains/3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSetCustomDomain(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	f.mock.ExpectQuery(`SELECT id, subdomain, name, custom_domain`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "subdomain", "name", "custom_domain",
				"suspended_at", "deleted_at", "created_at", "updated_at"}).
			AddRow(5, "acme", "Acme Inc", "old.example", nil, nil, now, now))
	f.mock.ExpectExec(`UPDATE site`).
		WithArgs("foo.org", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := f.do(t, http.MethodPut, "/sites/5/custom-domain",
		`{"custom_domain":"https://FOO.org"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		CustomDomain string `json:"custom_domain"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CustomDomain != "foo.org" {
		t.Fatalf("custom_domain = %q, want foo.org (normalized)", resp.CustomDomain)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
