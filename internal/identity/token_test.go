package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careflow/internal/identity"
	"careflow/internal/identity/store/revocation"
	id "careflow/pkg/domain"
	dErrors "careflow/pkg/domain-errors"
)

func TestTokenService_GenerateAndValidate(t *testing.T) {
	svc := identity.NewTokenService("signing-key", "careflow-test", time.Hour, revocation.NewInMemoryTRL())
	patientID := id.NewPatientID()
	sessionID := id.NewSessionID()

	token, jti, expiresAt, err := svc.Generate(patientID, sessionID, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, patientID.String(), claims.PatientID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, jti, claims.ID)
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	svc := identity.NewTokenService("signing-key", "careflow-test", time.Minute, revocation.NewInMemoryTRL())

	token, _, _, err := svc.Generate(id.NewPatientID(), id.NewSessionID(), time.Now().Add(-2*time.Minute))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestTokenService_RejectsTokenSignedWithOtherKey(t *testing.T) {
	minter := identity.NewTokenService("key-a", "careflow-test", time.Hour, revocation.NewInMemoryTRL())
	verifier := identity.NewTokenService("key-b", "careflow-test", time.Hour, revocation.NewInMemoryTRL())

	token, _, _, err := minter.Generate(id.NewPatientID(), id.NewSessionID(), time.Now())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestTokenService_RevocationRoundTrip(t *testing.T) {
	svc := identity.NewTokenService("signing-key", "careflow-test", time.Hour, revocation.NewInMemoryTRL())
	ctx := context.Background()

	_, jti, _, err := svc.Generate(id.NewPatientID(), id.NewSessionID(), time.Now())
	require.NoError(t, err)

	revoked, err := svc.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Revoke(ctx, jti))

	revoked, err = svc.IsTokenRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMiddlewareAdapter_ExposesGateClaims(t *testing.T) {
	svc := identity.NewTokenService("signing-key", "careflow-test", time.Hour, revocation.NewInMemoryTRL())
	adapter := identity.NewMiddlewareAdapter(svc)
	patientID := id.NewPatientID()
	sessionID := id.NewSessionID()

	token, jti, _, err := svc.Generate(patientID, sessionID, time.Now())
	require.NoError(t, err)

	claims, err := adapter.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, patientID, claims.PatientID)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.Equal(t, jti, claims.JTI)
}
