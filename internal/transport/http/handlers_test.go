package httptransport_test

import (
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	id "careflow/pkg/domain"
	"careflow/pkg/testutil"
)

var testMetrics = metrics.New()

type env struct {
	router    http.Handler
	patientID id.PatientID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.New()

	templates := template.New()
	tokens := identity.NewTokenService("test-signing-key", "careflow-test", 15*time.Minute, revocation.NewInMemoryTRL())
	gate := identity.NewService(templates, identity.GrayscaleDecoder{}, identity.MSEMatcher{}, tokens, 0.25, log)

	emrWriter := dispatch.NewEMRWriter(emrstore.NewInMemoryStore(), testMetrics, log)
	pharmacy := dispatch.NewPharmacyDispatcher(orderstore.NewInMemoryStore(), testMetrics, log)

	wf := workflow.NewService(workflow.Deps{
		Sessions:     sessionstore.New(),
		Results:      resultstore.New(),
		Audit:        audit.NewPublisher(auditmem.New()),
		Gate:         gate,
		Transcripts:  transcript.NoteSource{},
		EMR:          emrWriter,
		Pharmacy:     pharmacy,
		Metrics:      testMetrics,
		Logger:       log,
		StageRetries: 2,
		BaseBackoff:  time.Millisecond,
	})

	handler := httptransport.NewHandler(wf, gate, emrWriter, pharmacy, log)
	router := httptransport.NewRouter(handler, identity.NewMiddlewareAdapter(tokens), tokens, log)

	return &env{router: router, patientID: id.NewPatientID()}
}

func encodedSample(fill byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = fill
	}
	return base64.StdEncoding.EncodeToString(b)
}

func (e *env) enroll(t *testing.T) {
	t.Helper()
	rr := testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/identity/enroll", map[string]string{
		"patient_id": e.patientID.String(),
		"sample":     encodedSample(128),
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
}

type startResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func (e *env) startSession(t *testing.T) string {
	t.Helper()
	rr := testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/session/start", map[string]string{
		"patient_id": e.patientID.String(),
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[startResponse](t, rr)
	require.Equal(t, "created", resp.State)
	return resp.ID
}

func (e *env) verify(t *testing.T, sessionID string) string {
	t.Helper()
	rr := testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/session/"+sessionID+"/verify", map[string]string{
		"sample": encodedSample(128),
	}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Status string `json:"status"`
		Token  string `json:"token"`
	}](t, rr)
	require.Equal(t, "verified", resp.Status)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (e *env) gated(t *testing.T, token, method, path string, body any) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = testutil.NewJSONRequest(t, method, path, body)
	} else {
		req = testutil.NewRequest(t, method, path)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestFullSessionFlowOverHTTP(t *testing.T) {
	e := newEnv(t)
	e.enroll(t)
	sessionID := e.startSession(t)
	token := e.verify(t, sessionID)

	rr := testutil.DoRequest(e.router, e.gated(t, token, http.MethodPost, "/session/"+sessionID+"/transcript", map[string]string{
		"text": "Patient has fever and cough for two days.",
	}))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	wantStates := []string{"scribed", "symptoms_extracted", "plans_ready", "prescription_drafted", "safety_checked"}
	for range wantStates {
		rr = testutil.DoRequest(e.router, e.gated(t, token, http.MethodPost, "/session/"+sessionID+"/advance", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)
	}

	rr = testutil.DoRequest(e.router, e.gated(t, token, http.MethodPost, "/session/"+sessionID+"/approve", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	outcome := testutil.UnmarshalResponse[struct {
		RecordID string `json:"record_id"`
		OrderID  string `json:"order_id"`
	}](t, rr)
	assert.NotEmpty(t, outcome.RecordID)
	assert.NotEmpty(t, outcome.OrderID)

	// Approval revoked the gate token; it no longer opens gated routes.
	rr = testutil.DoRequest(e.router, e.gated(t, token, http.MethodGet, "/session/"+sessionID, nil))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestAuditEndpointReturnsGaplessSequence(t *testing.T) {
	e := newEnv(t)
	e.enroll(t)
	sessionID := e.startSession(t)
	token := e.verify(t, sessionID)

	rr := testutil.DoRequest(e.router, e.gated(t, token, http.MethodPost, "/session/"+sessionID+"/transcript", map[string]string{
		"text": "Patient has a headache.",
	}))
	testutil.AssertStatus(t, rr, http.StatusNoContent)
	advanceReq := testutil.WithActor(e.gated(t, token, http.MethodPost, "/session/"+sessionID+"/advance", nil), "dr-mensah")
	rr = testutil.DoRequest(e.router, advanceReq)
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.DoRequest(e.router, e.gated(t, token, http.MethodGet, "/session/"+sessionID+"/audit", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Entries []struct {
			Seq      uint64 `json:"seq"`
			NewState string `json:"new_state"`
			Kind     string `json:"kind"`
			Actor    string `json:"actor"`
		} `json:"entries"`
	}](t, rr)

	require.Len(t, resp.Entries, 3)
	for i, entry := range resp.Entries {
		assert.Equal(t, uint64(i+1), entry.Seq)
		assert.Equal(t, "transition", entry.Kind)
	}
	assert.Equal(t, "scribed", resp.Entries[2].NewState)
	assert.Equal(t, "dr-mensah", resp.Entries[2].Actor)
}

func TestGatedRoutesRejectMissingToken(t *testing.T) {
	e := newEnv(t)
	e.enroll(t)
	sessionID := e.startSession(t)

	rr := testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/session/"+sessionID+"/transcript", map[string]string{
		"text": "patient has fever",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	rr = testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodPost, "/session/"+sessionID+"/advance"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestVerifyMismatchReturnsUnauthorizedStatus(t *testing.T) {
	e := newEnv(t)
	rr := testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/identity/enroll", map[string]string{
		"patient_id": e.patientID.String(),
		"sample":     encodedSample(0),
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	sessionID := e.startSession(t)

	rr = testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/session/"+sessionID+"/verify", map[string]string{
		"sample": encodedSample(255),
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "identity_mismatch")
}

func TestRedFlagTranscriptAbortsSession(t *testing.T) {
	e := newEnv(t)
	e.enroll(t)
	sessionID := e.startSession(t)
	token := e.verify(t, sessionID)

	rr := testutil.DoRequest(e.router, e.gated(t, token, http.MethodPost, "/session/"+sessionID+"/transcript", map[string]string{
		"text": "Patient reports severe chest pain for 2 days.",
	}))
	testutil.AssertStatus(t, rr, http.StatusNoContent)

	for i := 0; i < 5; i++ {
		rr = testutil.DoRequest(e.router, e.gated(t, token, http.MethodPost, "/session/"+sessionID+"/advance", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)
	}

	// Aborted sessions refuse any further work.
	rr = testutil.DoRequest(e.router, e.gated(t, token, http.MethodPost, "/session/"+sessionID+"/advance", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_transition")
}

func TestRejectWithoutStageCancelsSession(t *testing.T) {
	e := newEnv(t)
	e.enroll(t)
	sessionID := e.startSession(t)
	token := e.verify(t, sessionID)

	rr := testutil.DoRequest(e.router, e.gated(t, token, http.MethodPost, "/session/"+sessionID+"/reject", map[string]string{
		"reason": "patient withdrew consent",
	}))
	testutil.AssertStatus(t, rr, http.StatusNoContent)
}

func TestRequestValidation(t *testing.T) {
	e := newEnv(t)

	rr := testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/identity/enroll", map[string]string{
		"patient_id": "not-a-uuid",
		"sample":     encodedSample(128),
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")

	rr = testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/session/start", map[string]string{
		"patient_id": "not-a-uuid",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")

	rr = testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/session/start", map[string]string{}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t)
	rr := testutil.DoRequest(e.router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusOK)
}
