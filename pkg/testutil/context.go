package testutil

import (
	"net/http"

	"legajo/pkg/requestcontext"
)

// WithActor adds the acting operator to the request context.
// This simulates what the metadata middleware does for proxied requests.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
