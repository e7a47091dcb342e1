package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "careflow/pkg/domain"
	dErrors "careflow/pkg/domain-errors"
	"careflow/pkg/platform/httputil"
)

// HandleGetEMR handles GET /emr/{patientId}.
func (h *Handler) HandleGetEMR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.records.RecordsForPatient(ctx, patientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"patient_id": patientID,
		"records":    records,
	})
}

// HandleGetOrders handles GET /pharmacy/orders?patient_id=...
func (h *Handler) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := r.URL.Query().Get("patient_id")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "patient_id query parameter is required"))
		return
	}
	patientID, err := id.ParsePatientID(raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	orders, err := h.orders.OrdersForPatient(ctx, patientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"patient_id": patientID,
		"orders":     orders,
	})
}
