package router

import (
	"net/http"
	"strings"

	"github.com/clckenya/chatd/internal/pkg/instrument"
	"github.com/clckenya/chatd/internal/pkg/uid"
)

const (
	// HeaderCorrelationID tags a request chain across services.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is the same idea under the name some proxies use.
	HeaderRequestID = "X-Request-ID"
)

const maxCorrelationIDLen = 128

// sanitizeCorrelationID rejects header-injection attempts and trims oversized
// values.
func sanitizeCorrelationID(v string) string {
	if strings.ContainsAny(v, "\r\n") {
		return ""
	}
	v = strings.TrimSpace(v)
	if len(v) > maxCorrelationIDLen {
		v = v[:maxCorrelationIDLen]
	}
	return v
}

// middlewareCorrelationID adopts the caller's correlation ID or mints one,
// echoes it on the response, and parks it on the context for log records.
func middlewareCorrelationID(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := sanitizeCorrelationID(r.Header.Get(HeaderCorrelationID))
			if cid == "" {
				cid = sanitizeCorrelationID(r.Header.Get(HeaderRequestID))
			}
			if cid == "" && gen != nil {
				cid = gen.Generate()
			}

			if cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}
