package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"careflow/internal/stage"
	"careflow/internal/transcript"
	"careflow/internal/workflow"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/httputil"
	"careflow/pkg/requestcontext"
)

func sessionIDFromPath(r *http.Request) (id.SessionID, error) {
	return id.ParseSessionID(chi.URLParam(r, "id"))
}

// HandleAttachTranscript handles POST /session/{id}/transcript.
func (h *Handler) HandleAttachTranscript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[transcriptRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	input := workflow.TranscriptInput{Text: req.Text}
	if req.Audio != "" {
		data, err := req.audioBytes()
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		input.Audio = &transcript.Audio{ContentType: req.ContentType, Data: data}
	}

	if err := h.workflow.AttachTranscript(ctx, sessionID, input); err != nil {
		h.logger.WarnContext(ctx, "failed to attach transcript",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAdvance handles POST /session/{id}/advance.
func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.workflow.Advance(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "stage advance failed",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "stage advanced",
		"request_id", requestID,
		"session_id", sessionID,
		"stage", result.Stage,
		"status", result.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleApprove handles POST /session/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.workflow.Approve(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "approval failed",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, outcome)
}

// HandleReject handles POST /session/{id}/reject. With a stage named it
// rejects that surfaced result; without one it cancels the session.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[rejectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if req.Stage != "" {
		err = h.workflow.Reject(ctx, sessionID, stage.Name(req.Stage), req.Reason)
	} else {
		err = h.workflow.Cancel(ctx, sessionID, req.Reason)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "rejection failed",
			"request_id", requestID,
			"session_id", sessionID,
			"stage", req.Stage,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSession handles GET /session/{id}: the session snapshot with
// its stage results.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sess, err := h.workflow.Get(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	results, err := h.workflow.Results(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"session": sess,
		"results": results,
	})
}

// HandleGetAudit handles GET /session/{id}/audit.
func (h *Handler) HandleGetAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := sessionIDFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.workflow.History(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"entries":    toAuditResponse(entries),
	})
}
