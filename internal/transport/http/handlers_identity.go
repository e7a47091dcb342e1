package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"careflow/internal/identity"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/httputil"
	"careflow/pkg/requestcontext"
)

// HandleEnroll handles POST /identity/enroll.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[enrollRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	patientID, err := id.ParsePatientID(req.PatientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	data, err := req.sampleBytes()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.enrollment.Enroll(ctx, identity.Sample{PatientID: patientID, Data: data}); err != nil {
		h.logger.ErrorContext(ctx, "enrollment failed",
			"request_id", requestID,
			"patient_id", patientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"patient_id": patientID.String()})
}

// HandleStartSession handles POST /session/start.
func (h *Handler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[startSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	patientID, err := id.ParsePatientID(req.PatientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sess, err := h.workflow.Start(ctx, patientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start session",
			"request_id", requestID,
			"patient_id", patientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, sess)
}

// HandleVerify handles POST /session/{id}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[verifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	data, err := req.sampleBytes()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.workflow.Verify(ctx, sessionID, identity.Sample{Data: data})
	if err != nil {
		h.logger.WarnContext(ctx, "gate verification failed",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "gate verification passed",
		"request_id", requestID,
		"session_id", sessionID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, verifyResponse{
		Status:     result.Status,
		Confidence: result.Confidence,
		Token:      result.Token,
		ExpiresAt:  result.ExpiresAt,
	})
}
