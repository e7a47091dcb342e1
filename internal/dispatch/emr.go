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

// EMRStore persists committed records. Append must reject a second
// record for the same session with sentinel.ErrDuplicate. Supersede
// appends a correction and requires an existing record for the session;
// FindBySession then returns the correction.
type EMRStore interface {
	Append(ctx context.Context, record EMRRecord) error
	Supersede(ctx context.Context, record EMRRecord) error
	FindBySession(ctx context.Context, sessionID id.SessionID) (EMRRecord, error)
	ListByPatient(ctx context.Context, patientID id.PatientID) ([]EMRRecord, error)
}

// EMRWriter commits approved sessions to the record store.
type EMRWriter struct {
	store   EMRStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewEMRWriter(store EMRStore, m *metrics.Metrics, logger *slog.Logger) *EMRWriter {
	return &EMRWriter{store: store, metrics: m, logger: logger}
}

// Commit writes the record and returns its generated ID. A second commit
// for the same session returns duplicate_dispatch and writes nothing.
func (w *EMRWriter) Commit(ctx context.Context, record EMRRecord) (id.RecordID, error) {
	if record.SessionID.IsNil() {
		return id.RecordID{}, dErrors.New(dErrors.CodeInvalidInput, "session_id is required")
	}
	if record.PatientID.IsNil() {
		return id.RecordID{}, dErrors.New(dErrors.CodeInvalidInput, "patient_id is required")
	}

	record.ID = id.NewRecordID()
	if record.ApprovedAt.IsZero() {
		record.ApprovedAt = requestcontext.Now(ctx)
	}

	if err := w.store.Append(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			w.metrics.DispatchDuplicates.Inc()
			return id.RecordID{}, dErrors.New(dErrors.CodeDuplicateDispatch, "session already committed to EMR")
		}
		return id.RecordID{}, dErrors.Wrap(dErrors.CodeInternal, "failed to commit EMR record", err)
	}

	w.metrics.DispatchesTotal.WithLabelValues("emr").Inc()
	w.logger.InfoContext(ctx, "EMR record committed",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", record.SessionID,
		"record_id", record.ID,
	)
	return record.ID, nil
}

// RecordForSession returns the session's current committed record.
func (w *EMRWriter) RecordForSession(ctx context.Context, sessionID id.SessionID) (EMRRecord, error) {
	record, err := w.store.FindBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return EMRRecord{}, dErrors.New(dErrors.CodeNotFound, "no EMR record for session")
		}
		return EMRRecord{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load EMR record", err)
	}
	return record, nil
}

// Correct appends a new record superseding the session's current one.
// Records are never mutated; the correction carries a reference to the
// record it replaces.
func (w *EMRWriter) Correct(ctx context.Context, record EMRRecord) (id.RecordID, error) {
	if record.SessionID.IsNil() {
		return id.RecordID{}, dErrors.New(dErrors.CodeInvalidInput, "session_id is required")
	}

	current, err := w.store.FindBySession(ctx, record.SessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.RecordID{}, dErrors.New(dErrors.CodeNotFound, "no EMR record to correct for session")
		}
		return id.RecordID{}, dErrors.Wrap(dErrors.CodeInternal, "failed to load EMR record", err)
	}

	record.ID = id.NewRecordID()
	record.PatientID = current.PatientID
	record.Supersedes = current.ID
	if record.ApprovedAt.IsZero() {
		record.ApprovedAt = requestcontext.Now(ctx)
	}

	if err := w.store.Supersede(ctx, record); err != nil {
		return id.RecordID{}, dErrors.Wrap(dErrors.CodeInternal, "failed to commit EMR correction", err)
	}

	w.metrics.DispatchesTotal.WithLabelValues("emr_correction").Inc()
	w.logger.InfoContext(ctx, "EMR record corrected",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", record.SessionID,
		"record_id", record.ID,
		"supersedes", record.Supersedes,
	)
	return record.ID, nil
}

// RecordsForPatient returns the patient's committed records in commit
// order.
func (w *EMRWriter) RecordsForPatient(ctx context.Context, patientID id.PatientID) ([]EMRRecord, error) {
	records, err := w.store.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list EMR records", err)
	}
	return records, nil
}
