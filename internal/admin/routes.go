// internal/admin/routes.go
//
// Operator-facing JSON endpoints.
//
// Context
// -------
// These routes are mounted under /admin on the primary host only.  They
// are the mutation collaborators the resolver core consumes-not-owns:
// mapping CRUD and the legacy custom-domain setter all funnel through
// here, and every mutation invalidates the resolution cache for both
// the bare and www spellings of each host it touches, so the cache can
// never serve stale routing after an administrative change.
//
// Surface
// -------
//   POST   /cache/clear              – wholesale cache invalidation
//   GET    /domains                  – mappings ⋈ subdomains + legacy fields
//   POST   /domains                  – create mapping
//   PUT    /domains/{id}             – re-point or rename mapping
//   DELETE /domains/{id}             – detach domain
//   PUT    /sites/{id}/custom-domain – set/clear legacy field
//
// Authentication is terminated upstream (session gateway); these
// handlers assume an authorized operator.

package admin

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/siteforge-io/siteforge/internal/host"
	"github.com/siteforge-io/siteforge/internal/mapping"
	"github.com/siteforge-io/siteforge/internal/resolver"
	"github.com/siteforge-io/siteforge/internal/site"
)

// Handler bundles the admin routes' dependencies.
type Handler struct {
	db  *sqlx.DB
	res *resolver.Resolver
}

// New returns a Handler ready to mount.
func New(db *sqlx.DB, res *resolver.Resolver) *Handler {
	return &Handler{db: db, res: res}
}

// Routes builds the chi sub-router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/cache/clear", h.clearCache)
	r.Get("/domains", h.listDomains)
	r.Post("/domains", h.createMapping)
	r.Put("/domains/{id}", h.updateMapping)
	r.Delete("/domains/{id}", h.deleteMapping)
	r.Put("/sites/{id}/custom-domain", h.setCustomDomain)
	return r
}

//
// Cache administration
//

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	h.res.InvalidateAll()
	zap.L().Info("resolution cache cleared by operator")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"cleared_at": time.Now().UTC().Format(time.RFC3339),
	})
}

//
// Introspection
//

// listDomains returns the full mapping table joined with subdomains,
// plus every legacy custom-domain field, so operators can audit for
// collisions without direct database access.
func (h *Handler) listDomains(w http.ResponseWriter, r *http.Request) {
	mappings, err := mapping.All(r.Context(), h.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	legacy, err := site.AllLegacyDomains(r.Context(), h.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mappings":              mappings,
		"legacy_custom_domains": legacy,
	})
}

//
// Mapping mutations
//

type mappingRequest struct {
	Host   string `json:"host"`
	SiteID uint64 `json:"site_id"`
}

func (h *Handler) createMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	normalized := host.Normalize(req.Host)
	if normalized == "" || req.SiteID == 0 {
		writeError(w, http.StatusBadRequest, errors.New("host and site_id are required"))
		return
	}

	id, err := mapping.Create(r.Context(), h.db, normalized, req.SiteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.res.InvalidateHost(normalized)
	zap.L().Info("domain mapping created",
		zap.Uint64("id", id),
		zap.String("host", normalized),
		zap.Uint64("site_id", req.SiteID))
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "host": normalized})
}

func (h *Handler) updateMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	normalized := host.Normalize(req.Host)
	if normalized == "" || req.SiteID == 0 {
		writeError(w, http.StatusBadRequest, errors.New("host and site_id are required"))
		return
	}

	// The old host must be invalidated too, or it keeps resolving until
	// its TTL runs out.
	old, err := mapping.ByID(r.Context(), h.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, errors.New("mapping not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if err := mapping.Update(r.Context(), h.db, id, normalized, req.SiteID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.res.InvalidateHost(old.Host)
	h.res.InvalidateHost(normalized)
	zap.L().Info("domain mapping updated",
		zap.Uint64("id", id),
		zap.String("old_host", old.Host),
		zap.String("host", normalized))
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "host": normalized})
}

func (h *Handler) deleteMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	old, err := mapping.ByID(r.Context(), h.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, errors.New("mapping not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if err := mapping.Delete(r.Context(), h.db, id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.res.InvalidateHost(old.Host)
	zap.L().Info("domain mapping deleted",
		zap.Uint64("id", id),
		zap.String("host", old.Host))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

//
// Legacy custom-domain field
//

type customDomainRequest struct {
	CustomDomain string `json:"custom_domain"` // "" clears the field
}

func (h *Handler) setCustomDomain(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req customDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	normalized := host.Normalize(req.CustomDomain)

	rec, err := site.ByID(r.Context(), h.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, errors.New("site not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if err := site.UpdateCustomDomain(r.Context(), h.db, id, normalized); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rec.CustomDomain.Valid {
		h.res.InvalidateHost(rec.CustomDomain.String)
	}
	if normalized != "" {
		h.res.InvalidateHost(normalized)
	}
	zap.L().Info("site custom domain updated",
		zap.Uint64("site_id", id),
		zap.String("custom_domain", normalized))
	writeJSON(w, http.StatusOK, map[string]any{
		"site_id":       id,
		"custom_domain": normalized,
	})
}

//
// helpers
//

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid id"))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
