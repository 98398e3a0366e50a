// internal/requestinfo/middleware.go
//
// Enrich parses the user agent and geolocates the peer once per
// request, then stows the result in the request context for handlers
// and the host router's decision logs.

package requestinfo

import (
	"net/http"
	"time"
)

// Enrich is standard chi-style middleware.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &Info{
			UA:        parseUA(r.UserAgent()),
			Geo:       lookupGeo(clientIP(r.RemoteAddr)),
			Timestamp: time.Now(),
		}
		next.ServeHTTP(w, r.WithContext(intoContext(r.Context(), info)))
	})
}
