package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"careflow/internal/platform/metrics"
	id "careflow/pkg/domain"
	dErrors "careflow/pkg/domain-errors"
	"careflow/pkg/platform/sentinel"
	"careflow/pkg/requestcontext"
)

// OrderStore persists pharmacy orders. Append must reject a second order
// for the same session with sentinel.ErrDuplicate.
type OrderStore interface {
	Append(ctx context.Context, order PharmacyOrder) error
	FindBySession(ctx context.Context, sessionID id.SessionID) (PharmacyOrder, error)
	ListByPatient(ctx context.Context, patientID id.PatientID) ([]PharmacyOrder, error)
}

// PharmacyDispatcher forwards approved prescriptions to the pharmacy
// queue.
type PharmacyDispatcher struct {
	store   OrderStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewPharmacyDispatcher(store OrderStore, m *metrics.Metrics, logger *slog.Logger) *PharmacyDispatcher {
	return &PharmacyDispatcher{store: store, metrics: m, logger: logger}
}

// Dispatch enqueues the order and returns its generated ID. A second
// dispatch for the same session returns duplicate_dispatch and enqueues
// nothing.
func (d *PharmacyDispatcher) Dispatch(ctx context.Context, order PharmacyOrder) (id.OrderID, error) {
	if order.SessionID.IsNil() {
		return id.OrderID{}, dErrors.New(dErrors.CodeInvalidInput, "session_id is required")
	}
	if order.Prescription == "" {
		return id.OrderID{}, dErrors.New(dErrors.CodeInvalidInput, "prescription is required")
	}

	order.ID = id.NewOrderID()
	if order.DispatchedAt.IsZero() {
		order.DispatchedAt = requestcontext.Now(ctx)
	}

	if err := d.store.Append(ctx, order); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			d.metrics.DispatchDuplicates.Inc()
			return id.OrderID{}, dErrors.New(dErrors.CodeDuplicateDispatch, "session already dispatched to pharmacy")
		}
		return id.OrderID{}, dErrors.Wrap(dErrors.CodeInternal, "failed to dispatch pharmacy order", err)
	}

	d.metrics.DispatchesTotal.WithLabelValues("pharmacy").Inc()
	d.logger.InfoContext(ctx, "pharmacy order dispatched",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", order.SessionID,
		"order_id", order.ID,
	)
	return order.ID, nil
}

// OrderForSession returns the session's dispatched order.
func (d *PharmacyDispatcher) OrderForSession(ctx context.Context, sessionID id.SessionID) (PharmacyOrder, error) {
	order, err := d.store.FindBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return PharmacyOrder{}, dErrors.New(dErrors.CodeNotFound, "no pharmacy order for session")
		}
		return PharmacyOrder{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load pharmacy order", err)
	}
	return order, nil
}

// OrdersForPatient returns the patient's dispatched orders in dispatch
// order.
func (d *PharmacyDispatcher) OrdersForPatient(ctx context.Context, patientID id.PatientID) ([]PharmacyOrder, error) {
	orders, err := d.store.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list pharmacy orders", err)
	}
	return orders, nil
}
