// Package httptransport is the thin HTTP layer. Handlers decode,
// validate, and delegate to domain services; no business logic lives
// here.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authmw "careflow/pkg/platform/middleware/auth"
	"careflow/pkg/platform/middleware/request"
)

// NewRouter mounts all endpoints. Session mutation routes past the gate
// sit behind the gate-token middleware; enrollment, session start, and
// verification itself do not, since no token exists yet.
func NewRouter(h *Handler, validator authmw.TokenValidator, revocation authmw.RevocationChecker, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.ID)
	r.Use(request.Actor)

	r.Get("/healthz", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/identity/enroll", h.HandleEnroll)
	r.Post("/session/start", h.HandleStartSession)
	r.Post("/session/{id}/verify", h.HandleVerify)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireGateToken(validator, revocation, logger))

		r.Post("/session/{id}/transcript", h.HandleAttachTranscript)
		r.Post("/session/{id}/advance", h.HandleAdvance)
		r.Post("/session/{id}/approve", h.HandleApprove)
		r.Post("/session/{id}/reject", h.HandleReject)
		r.Get("/session/{id}", h.HandleGetSession)
		r.Get("/session/{id}/audit", h.HandleGetAudit)

		r.Get("/emr/{patientId}", h.HandleGetEMR)
		r.Get("/pharmacy/orders", h.HandleGetOrders)
	})

	return r
}
