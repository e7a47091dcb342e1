package test

import (
	"net/http"
	"testing"
	"time"

	"careflow/internal/audit"
	auditmem "careflow/internal/audit/store/memory"
	"careflow/internal/dispatch"
	emrstore "careflow/internal/dispatch/store/emr"
	orderstore "careflow/internal/dispatch/store/order"
	"careflow/internal/identity"
	"careflow/internal/identity/store/revocation"
	"careflow/internal/identity/store/template"
	"careflow/internal/platform/logger"
	"careflow/internal/platform/metrics"
	"careflow/internal/transcript"
	httptransport "careflow/internal/transport/http"
	"careflow/internal/workflow"
	resultstore "careflow/internal/workflow/store/result"
	sessionstore "careflow/internal/workflow/store/session"
	"careflow/pkg/testutil"
)

var testMetrics = metrics.New()

func newRouter() http.Handler {
	log := logger.New()
	m := testMetrics

	tokens := identity.NewTokenService("scaffold-key", "careflow-test", time.Minute, revocation.NewInMemoryTRL())
	gate := identity.NewService(template.New(), identity.GrayscaleDecoder{}, identity.MSEMatcher{}, tokens, 0.25, log)
	emrWriter := dispatch.NewEMRWriter(emrstore.NewInMemoryStore(), m, log)
	pharmacy := dispatch.NewPharmacyDispatcher(orderstore.NewInMemoryStore(), m, log)

	wf := workflow.NewService(workflow.Deps{
		Sessions:    sessionstore.New(),
		Results:     resultstore.New(),
		Audit:       audit.NewPublisher(auditmem.New()),
		Gate:        gate,
		Transcripts: transcript.NoteSource{},
		EMR:         emrWriter,
		Pharmacy:    pharmacy,
		Metrics:     m,
		Logger:      log,
	})

	handler := httptransport.NewHandler(wf, gate, emrWriter, pharmacy, log)
	return httptransport.NewRouter(handler, identity.NewMiddlewareAdapter(tokens), tokens, log)
}

func TestRouterScaffold(t *testing.T) {
	testutil.Given(t, "the HTTP router", func(t *testing.T) {
		router := newRouter()

		testutil.When(t, "calling GET /healthz", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

			testutil.Then(t, "it should respond ok", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
			})
		})

		testutil.When(t, "calling GET /metrics", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))

			testutil.Then(t, "it should serve the registry", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
			})
		})

		testutil.When(t, "calling a gated route without a token", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/session/00000000-0000-0000-0000-000000000001/advance"))

			testutil.Then(t, "it should be rejected at the gate", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
			})
		})

		testutil.When(t, "calling an unknown route", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/nope"))

			testutil.Then(t, "it should 404", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusNotFound)
			})
		})
	})
}
