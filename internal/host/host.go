// internal/host/host.go
//
// Canonical host handling.
//
// Context
// -------
// Every lookup key in the platform — cache entries, domain_mapping rows,
// redirect decisions — is a *normalized* host: no scheme, no port, no
// path, lower-case.  Operators and legacy data are messier than that
// ("HTTPS://www.Example.com:443/about"), so Normalize is deliberately
// forgiving: it never fails, it just strips until only the hostname is
// left.
//
// Variants exists because the legacy site.custom_domain column was
// free-form text for years.  Rows in it may carry a scheme, and a
// customer who typed "example.com" expects "www.example.com" to work
// too.  The variant list is ordered: the exact normalized host first,
// then the www-toggled form, then scheme-prefixed spellings of both for
// matching old legacy values.  Callers that match against multiple rows
// must honor this order.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package host

import "strings"

const wwwPrefix = "www."

// Normalize converts a raw Host header (or operator-entered domain) into
// the canonical lookup key.  It strips an http:// or https:// scheme,
// discards anything after the first "/", drops a trailing :port, trims
// whitespace, and lower-cases the rest.  Normalize is total: malformed
// input degrades to a shorter string, empty input stays empty.
func Normalize(raw string) string {
	h := strings.TrimSpace(raw)

	// Scheme, checked case-insensitively without allocating.
	if len(h) >= 7 && strings.EqualFold(h[:7], "http://") {
		h = h[7:]
	} else if len(h) >= 8 && strings.EqualFold(h[:8], "https://") {
		h = h[8:]
	}

	// Path or query accidentally included.
	if i := strings.IndexByte(h, '/'); i != -1 {
		h = h[:i]
	}

	// Trailing :port.  IPv6 literals are bracketed, so the last colon
	// outside a bracket is always the port separator.
	if i := strings.LastIndexByte(h, ':'); i != -1 && !strings.Contains(h[i:], "]") {
		h = h[:i]
	}

	return strings.ToLower(h)
}

// StripWWW removes a leading "www." when present.
func StripWWW(h string) string {
	return strings.TrimPrefix(h, wwwPrefix)
}

// HasWWW reports whether h carries the "www." prefix.
func HasWWW(h string) bool {
	return strings.HasPrefix(h, wwwPrefix)
}

// Variants expands a normalized host into the ordered candidate list
// used for store lookups: the host itself, its www-toggled companion,
// and scheme-prefixed spellings of both (legacy custom_domain values
// were sometimes stored with a scheme attached).  The input host is
// always first so exact matches win.
func Variants(normalized string) []string {
	if normalized == "" {
		return nil
	}

	bare := []string{normalized}
	if HasWWW(normalized) {
		if s := StripWWW(normalized); s != "" {
			bare = append(bare, s)
		}
	} else {
		bare = append(bare, wwwPrefix+normalized)
	}

	out := make([]string, 0, len(bare)*3)
	out = append(out, bare...)
	for _, b := range bare {
		out = append(out, "http://"+b, "https://"+b)
	}
	return out
}
