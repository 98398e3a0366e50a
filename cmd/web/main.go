// cmd/web/main.go
//
// SiteForge – HTTP entry point.
//
// Boot order
// ----------
//
//  1. Start daily rotating logger (tees to console when running in a TTY).
//
//  2. Load config (conf/.env → conf/global.yaml → SITEFORGE_ env overlay).
//
//  3. Resolve the control-plane DB password (literal or `vault:` ref).
//
//  4. Open the control-plane DB and log active-site / mapping counts.
//
//  5. Build the resolution cache and resolver.
//
//  6. Assemble the chi router:
//
//     • security headers            – middleware.Security
//     • request enrichment          – requestinfo.Enrich (UA + geo)
//     • host→tenant boundary        – middleware.HostRouter
//     • /metrics, /healthz, /admin, /site/{subdomain}, /
//
//  7. Serve under errgroup with signal-driven graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/siteforge-io/siteforge/internal/admin"
	"github.com/siteforge-io/siteforge/internal/config"
	"github.com/siteforge-io/siteforge/internal/database"
	"github.com/siteforge-io/siteforge/internal/logger"
	"github.com/siteforge-io/siteforge/internal/mapping"
	"github.com/siteforge-io/siteforge/internal/middleware"
	"github.com/siteforge-io/siteforge/internal/requestinfo"
	"github.com/siteforge-io/siteforge/internal/resolver"
	"github.com/siteforge-io/siteforge/internal/server"
	"github.com/siteforge-io/siteforge/internal/site"
	"github.com/siteforge-io/siteforge/internal/vault"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	rootDir, _ := os.Getwd()
	logOut, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	//
	// ── 1.  Config ──────────────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		logOut.Fatalf("load config: %v", err)
	}

	//
	// ── 2.  Secrets + global DB connect ─────────────────────────────────
	//
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()

	password := cfg.Database.GlobalPassword
	if vault.IsRef(password) {
		vcli, err := vault.New(context.Background(), logOut.Infof)
		if err != nil {
			logOut.Fatalf("vault client: %v", err)
		}
		if password, err = vault.ResolveRef(bootCtx, vcli, password); err != nil {
			logOut.Fatalf("resolve db password: %v", err)
		}
	}

	logOut.Infow("connecting to control-plane DB")
	globalDB, err := database.Open(fmt.Sprintf(cfg.Database.GlobalDSN, password))
	if err != nil {
		logOut.Fatalf("connect control-plane DB: %v", err)
	}
	defer globalDB.Close()

	// Early sanity check: how much routing data do we have?
	var activeSites, mappings int
	_ = globalDB.Get(&activeSites, `
	    SELECT COUNT(*) FROM site
	    WHERE suspended_at IS NULL AND deleted_at IS NULL`)
	_ = globalDB.Get(&mappings, `SELECT COUNT(*) FROM domain_mapping`)
	logOut.Infow("control-plane DB online",
		"active_sites", activeSites, "domain_mappings", mappings)

	//
	// ── 3.  Resolver (cache + store) ────────────────────────────────────
	//
	cache := resolver.NewCache(
		cfg.Resolver.PositiveTTL,
		cfg.Resolver.NegativeTTL,
		cfg.Resolver.MaxEntries,
	)
	defer cache.Close()

	res := resolver.New(
		mapping.NewStore(globalDB),
		cache,
		cfg.Resolver.QueryTimeout,
		cfg.Resolver.ReservedSuffixes,
	)

	//
	// ── 4.  Request enrichment (optional GeoIP) ─────────────────────────
	//
	if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
		logOut.Warnw("geoip disabled", "path", cfg.GeoIP.DBPath, "err", err)
	}

	//
	// ── 5.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(middleware.Security)
	r.Use(requestinfo.Enrich)
	r.Use(middleware.HostRouter(res, cfg.HTTP.PrimaryHost, cfg.HTTP.BaseURL))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := globalDB.PingContext(req.Context()); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Mount("/admin", admin.New(globalDB, res).Routes())

	// Tenant namespace.  Rendering is owned by the page pipeline; this
	// handler anchors the namespace so host redirects land somewhere real.
	r.Get("/site/{subdomain}", func(w http.ResponseWriter, req *http.Request) {
		sub := chi.URLParam(req, "subdomain")
		rec, err := site.BySubdomain(req.Context(), globalDB, sub)
		if err != nil {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<!doctype html><title>%s</title><h1>%s</h1>",
			rec.Name, rec.Name)
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<!doctype html><title>SiteForge</title><h1>SiteForge</h1>"))
	})

	//
	// ── 6.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case s := <-sig:
			logOut.Infow("shutting down", "signal", s.String())
		case <-ctx.Done():
		}
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		logOut.Fatalf("http server: %v", err)
	}
}
