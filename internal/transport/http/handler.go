package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"careflow/internal/audit"
	"careflow/internal/dispatch"
	"careflow/internal/identity"
	"careflow/internal/stage"
	"careflow/internal/workflow"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/httputil"
)

// WorkflowService is the orchestrator surface the handlers need.
type WorkflowService interface {
	Start(ctx context.Context, patientID id.PatientID) (workflow.Session, error)
	Verify(ctx context.Context, sessionID id.SessionID, sample identity.Sample) (identity.VerificationResult, error)
	AttachTranscript(ctx context.Context, sessionID id.SessionID, input workflow.TranscriptInput) error
	Advance(ctx context.Context, sessionID id.SessionID) (workflow.StageResult, error)
	Approve(ctx context.Context, sessionID id.SessionID) (workflow.ApprovalOutcome, error)
	Reject(ctx context.Context, sessionID id.SessionID, name stage.Name, reason string) error
	Cancel(ctx context.Context, sessionID id.SessionID, reason string) error
	Get(ctx context.Context, sessionID id.SessionID) (workflow.Session, error)
	Results(ctx context.Context, sessionID id.SessionID) ([]workflow.StageResult, error)
	History(ctx context.Context, sessionID id.SessionID) ([]audit.Entry, error)
}

// EnrollmentService covers the enrollment path of the Identity Gate.
type EnrollmentService interface {
	Enroll(ctx context.Context, sample identity.Sample) error
}

// RecordReader reads committed EMR records.
type RecordReader interface {
	RecordsForPatient(ctx context.Context, patientID id.PatientID) ([]dispatch.EMRRecord, error)
}

// OrderReader reads dispatched pharmacy orders.
type OrderReader interface {
	OrdersForPatient(ctx context.Context, patientID id.PatientID) ([]dispatch.PharmacyOrder, error)
}

// Handler wires all endpoints to their services.
type Handler struct {
	workflow   WorkflowService
	enrollment EnrollmentService
	records    RecordReader
	orders     OrderReader
	logger     *slog.Logger
}

func NewHandler(wf WorkflowService, enrollment EnrollmentService, records RecordReader, orders OrderReader, logger *slog.Logger) *Handler {
	return &Handler{
		workflow:   wf,
		enrollment: enrollment,
		records:    records,
		orders:     orders,
		logger:     logger,
	}
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
