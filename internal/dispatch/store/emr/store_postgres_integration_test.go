//go:build integration

package emr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careflow/internal/dispatch"
	id "careflow/pkg/domain"
	"careflow/pkg/platform/sentinel"
	"careflow/pkg/testutil/containers"
)

func newRecord(patientID id.PatientID) dispatch.EMRRecord {
	return dispatch.EMRRecord{
		ID:         id.NewRecordID(),
		PatientID:  patientID,
		SessionID:  id.NewSessionID(),
		Results:    map[string]string{"scribe": "structured note"},
		ApprovedAt: time.Now().Truncate(time.Second),
	}
}

func TestPostgresStore_AppendDeduplicatesBySession(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	defer pc.Terminate(t)

	store := NewPostgresStore(pc.DB)
	ctx := context.Background()

	record := newRecord(id.NewPatientID())
	require.NoError(t, store.Append(ctx, record))

	second := record
	second.ID = id.NewRecordID()
	err := store.Append(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrDuplicate))

	found, err := store.FindBySession(ctx, record.SessionID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, record.Results, found.Results)
}

func TestPostgresStore_SupersedeReturnsLatest(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	defer pc.Terminate(t)

	store := NewPostgresStore(pc.DB)
	ctx := context.Background()

	original := newRecord(id.NewPatientID())
	require.NoError(t, store.Append(ctx, original))

	correction := original
	correction.ID = id.NewRecordID()
	correction.Supersedes = original.ID
	correction.Results = map[string]string{"scribe": "corrected note"}
	require.NoError(t, store.Supersede(ctx, correction))

	found, err := store.FindBySession(ctx, original.SessionID)
	require.NoError(t, err)
	assert.Equal(t, correction.ID, found.ID)
	assert.Equal(t, original.ID, found.Supersedes)
	assert.Equal(t, "corrected note", found.Results["scribe"])

	records, err := store.ListByPatient(ctx, original.PatientID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, original.ID, records[0].ID)
	assert.Equal(t, correction.ID, records[1].ID)
}

func TestPostgresStore_SupersedeWithoutOriginalIsNotFound(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	defer pc.Terminate(t)

	store := NewPostgresStore(pc.DB)
	ctx := context.Background()

	correction := newRecord(id.NewPatientID())
	correction.Supersedes = id.NewRecordID()
	err := store.Supersede(ctx, correction)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}

func TestPostgresStore_FindBySessionMissing(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	defer pc.Terminate(t)

	store := NewPostgresStore(pc.DB)

	_, err := store.FindBySession(context.Background(), id.NewSessionID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}
