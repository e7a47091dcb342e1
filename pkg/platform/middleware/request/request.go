// Package request provides request-ID correlation middleware.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"careflow/pkg/requestcontext"
)

// HeaderRequestID is the inbound/outbound correlation header.
const HeaderRequestID = "X-Request-Id"

// ID assigns every request a correlation ID, honoring one supplied by the
// caller, and echoes it on the response.
func ID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the correlation ID from the request context.
func GetRequestID(r *http.Request) string {
	return requestcontext.RequestID(r.Context())
}

// HeaderActor names the reviewer or agent performing the request.
const HeaderActor = "X-Actor"

// Actor stores the caller-supplied actor name in the context. Absent
// header means a system-initiated action; services fall back accordingly.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get(HeaderActor); actor != "" {
			r = r.WithContext(requestcontext.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
