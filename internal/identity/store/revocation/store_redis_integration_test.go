//go:build integration

package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careflow/pkg/testutil/containers"
)

func TestRedisTRL_RevokeAndCheck(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	defer rc.Terminate(t)

	trl := NewRedisTRL(rc.Client)
	ctx := context.Background()

	revoked, err := trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Hour))

	revoked, err = trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRedisTRL_EntryExpiresWithTTL(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	defer rc.Terminate(t)

	trl := NewRedisTRL(rc.Client)
	ctx := context.Background()

	require.NoError(t, trl.RevokeToken(ctx, "jti-short", 200*time.Millisecond))

	revoked, err := trl.IsRevoked(ctx, "jti-short")
	require.NoError(t, err)
	assert.True(t, revoked)

	time.Sleep(400 * time.Millisecond)

	revoked, err = trl.IsRevoked(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, revoked)
}
