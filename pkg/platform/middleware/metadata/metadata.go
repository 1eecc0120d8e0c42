package metadata

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"legajo/pkg/requestcontext"
)

// Request headers read and written by RequestMetadata.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderActor     = "X-Actor"
)

// RequestMetadata stores the request ID, acting operator and client IP in the
// context. An incoming X-Request-ID is reused; otherwise a new one is
// generated. The ID is echoed on the response.
// This middleware should be applied early in the chain.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithActor(ctx, strings.TrimSpace(r.Header.Get(HeaderActor)))
		ctx = requestcontext.WithClientIP(ctx, ClientIPFromRequest(r))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port", or "[::1]:port" for IPv6
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return ""
}
