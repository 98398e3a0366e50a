// internal/middleware/hostrouter.go
//
// Boundary router: custom domain → tenant namespace redirect.
//
// Context
// -------
// Every inbound request passes through here first.  Requests on the
// platform's own hosts (primary domain, its www form, loopback dev
// hosts) fall straight through to the mounted routes with no resolution
// work at all.  Anything else is presumed to be a tenant custom domain:
//
//   resolved   → 302 to <base_url>/site/<subdomain>?path=<orig path>,
//                original query string appended verbatim so deep links
//                survive the host→path rewrite,
//   unmapped   → 302 to the platform landing page,
//   store down → pass through (fail open) with an error log; a broken
//                mapping store must never take down first-party traffic.
//
// Redirects are 302, not 308: domain attachments are operator-mutable,
// and a permanently cached redirect would outlive a detach.  The tenant
// redirect always targets the primary host, which is a system host here,
// so a redirected request cannot loop back into resolution.

package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/siteforge-io/siteforge/internal/host"
	"github.com/siteforge-io/siteforge/internal/requestinfo"
	"github.com/siteforge-io/siteforge/internal/resolver"
)

// HostRouter returns the boundary middleware.  primaryHost is the
// platform's first-party domain; baseURL is the absolute prefix tenant
// and landing redirects are sent to (normally "https://"+primaryHost).
func HostRouter(res *resolver.Resolver, primaryHost, baseURL string) func(http.Handler) http.Handler {
	primary := host.Normalize(primaryHost)
	base := strings.TrimRight(baseURL, "/")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := host.Normalize(r.Host)

			if isSystemHost(h, primary) {
				next.ServeHTTP(w, r)
				return
			}

			result, err := res.Resolve(r.Context(), r.Host)
			switch {
			case err == nil:
				target := tenantRedirectURL(base, result.Subdomain, r.URL)
				logDecision(r, "redirect", h, result.Subdomain)
				http.Redirect(w, r, target, http.StatusFound)

			case errors.Is(err, resolver.ErrUnmapped):
				logDecision(r, "unmapped", h, "")
				http.Redirect(w, r, base+"/", http.StatusFound)

			default:
				// Store unavailable: fail open rather than erroring the
				// request or mis-declaring a live domain unmapped.
				zap.L().Error("host resolution failed open",
					zap.String("host", h),
					zap.Error(err))
				next.ServeHTTP(w, r)
			}
		})
	}
}

// isSystemHost reports whether h is first-party: the primary domain, its
// www form, or a loopback development host.
func isSystemHost(h, primary string) bool {
	switch h {
	case "", primary, "www." + primary, "localhost", "127.0.0.1", "0.0.0.0", "[::1]":
		return true
	}
	return false
}

// tenantRedirectURL builds <base>/site/<subdomain>?path=<orig>&<orig query>.
// The original query string is appended verbatim, not re-encoded.
func tenantRedirectURL(base, subdomain string, orig *url.URL) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("/site/")
	b.WriteString(url.PathEscape(subdomain))
	b.WriteString("?path=")
	b.WriteString(url.QueryEscape(orig.Path))
	if orig.RawQuery != "" {
		b.WriteByte('&')
		b.WriteString(orig.RawQuery)
	}
	return b.String()
}

// logDecision records a routing decision, enriched with UA/geo context
// when the requestinfo middleware has run.
func logDecision(r *http.Request, decision, hostKey, subdomain string) {
	fields := []zap.Field{
		zap.String("decision", decision),
		zap.String("host", hostKey),
		zap.String("path", r.URL.Path),
	}
	if subdomain != "" {
		fields = append(fields, zap.String("subdomain", subdomain))
	}
	if info := requestinfo.FromContext(r.Context()); info != nil {
		fields = append(fields,
			zap.Bool("bot", info.UA.IsBot),
			zap.String("country", info.Geo.CountryISO))
	}
	zap.L().Info("host routed", fields...)
}
