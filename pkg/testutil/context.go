package testutil

import (
	"net/http"

	"careflow/pkg/requestcontext"
)

// WithActor adds a reviewer/agent name to the request context, the same
// way the actor middleware would for a request carrying the actor header.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}
