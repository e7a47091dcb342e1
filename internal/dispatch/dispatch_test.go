package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careflow/internal/dispatch"
	"careflow/internal/dispatch/store/emr"
	"careflow/internal/dispatch/store/order"
	"careflow/internal/platform/logger"
	"careflow/internal/platform/metrics"
	id "careflow/pkg/domain"
	dErrors "careflow/pkg/domain-errors"
)

var testMetrics = metrics.New()

func TestEMRWriter_CommitAndReadBack(t *testing.T) {
	store := emr.NewInMemoryStore()
	writer := dispatch.NewEMRWriter(store, testMetrics, logger.New())
	ctx := context.Background()
	patientID := id.NewPatientID()

	recordID, err := writer.Commit(ctx, dispatch.EMRRecord{
		PatientID: patientID,
		SessionID: id.NewSessionID(),
		Results:   map[string]string{"scribe": "summary text"},
	})
	require.NoError(t, err)
	assert.False(t, recordID.IsNil())

	records, err := writer.RecordsForPatient(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, recordID, records[0].ID)
	assert.False(t, records[0].ApprovedAt.IsZero())
}

func TestEMRWriter_SecondCommitForSessionIsDuplicate(t *testing.T) {
	store := emr.NewInMemoryStore()
	writer := dispatch.NewEMRWriter(store, testMetrics, logger.New())
	ctx := context.Background()
	sessionID := id.NewSessionID()

	record := dispatch.EMRRecord{
		PatientID: id.NewPatientID(),
		SessionID: sessionID,
		Results:   map[string]string{"scribe": "summary text"},
	}
	_, err := writer.Commit(ctx, record)
	require.NoError(t, err)

	_, err = writer.Commit(ctx, record)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateDispatch))
	assert.Equal(t, 1, store.Len())
}

func TestEMRWriter_RequiresSessionAndPatient(t *testing.T) {
	writer := dispatch.NewEMRWriter(emr.NewInMemoryStore(), testMetrics, logger.New())
	ctx := context.Background()

	_, err := writer.Commit(ctx, dispatch.EMRRecord{PatientID: id.NewPatientID()})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = writer.Commit(ctx, dispatch.EMRRecord{SessionID: id.NewSessionID()})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestEMRWriter_CorrectSupersedesOriginal(t *testing.T) {
	store := emr.NewInMemoryStore()
	writer := dispatch.NewEMRWriter(store, testMetrics, logger.New())
	ctx := context.Background()
	patientID := id.NewPatientID()
	sessionID := id.NewSessionID()

	originalID, err := writer.Commit(ctx, dispatch.EMRRecord{
		PatientID: patientID,
		SessionID: sessionID,
		Results:   map[string]string{"scribe": "summary text"},
	})
	require.NoError(t, err)

	correctionID, err := writer.Correct(ctx, dispatch.EMRRecord{
		SessionID: sessionID,
		Results:   map[string]string{"scribe": "amended summary text"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, originalID, correctionID)

	// Both records remain; the correction references the original.
	records, err := writer.RecordsForPatient(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, originalID, records[0].ID)
	assert.Equal(t, correctionID, records[1].ID)
	assert.Equal(t, originalID, records[1].Supersedes)
	assert.Equal(t, "amended summary text", records[1].Results["scribe"])
}

func TestEMRWriter_CorrectWithoutOriginalIsNotFound(t *testing.T) {
	writer := dispatch.NewEMRWriter(emr.NewInMemoryStore(), testMetrics, logger.New())

	_, err := writer.Correct(context.Background(), dispatch.EMRRecord{
		SessionID: id.NewSessionID(),
		Results:   map[string]string{"scribe": "text"},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestPharmacyDispatcher_DispatchAndReadBack(t *testing.T) {
	store := order.NewInMemoryStore()
	dispatcher := dispatch.NewPharmacyDispatcher(store, testMetrics, logger.New())
	ctx := context.Background()
	patientID := id.NewPatientID()

	orderID, err := dispatcher.Dispatch(ctx, dispatch.PharmacyOrder{
		RecordID:     id.NewRecordID(),
		SessionID:    id.NewSessionID(),
		PatientID:    patientID,
		Prescription: "Rx Draft: paracetamol as needed",
	})
	require.NoError(t, err)
	assert.False(t, orderID.IsNil())

	orders, err := dispatcher.OrdersForPatient(ctx, patientID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, orderID, orders[0].ID)
	assert.WithinDuration(t, time.Now(), orders[0].DispatchedAt, time.Minute)
}

func TestPharmacyDispatcher_SecondDispatchForSessionIsDuplicate(t *testing.T) {
	store := order.NewInMemoryStore()
	dispatcher := dispatch.NewPharmacyDispatcher(store, testMetrics, logger.New())
	ctx := context.Background()
	sessionID := id.NewSessionID()

	pharmacyOrder := dispatch.PharmacyOrder{
		RecordID:     id.NewRecordID(),
		SessionID:    sessionID,
		PatientID:    id.NewPatientID(),
		Prescription: "Rx Draft: paracetamol as needed",
	}
	_, err := dispatcher.Dispatch(ctx, pharmacyOrder)
	require.NoError(t, err)

	_, err = dispatcher.Dispatch(ctx, pharmacyOrder)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateDispatch))
	assert.Equal(t, 1, store.Len())
}

func TestPharmacyDispatcher_RequiresPrescription(t *testing.T) {
	dispatcher := dispatch.NewPharmacyDispatcher(order.NewInMemoryStore(), testMetrics, logger.New())

	_, err := dispatcher.Dispatch(context.Background(), dispatch.PharmacyOrder{
		SessionID: id.NewSessionID(),
		PatientID: id.NewPatientID(),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
