package guideline

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashingEmbedder_DeterministicAndNormalized(t *testing.T) {
	embedder, err := NewHashingEmbedder(384)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := embedder.Embed(ctx, "chest pain with ECG changes")
	require.NoError(t, err)
	second, err := embedder.Embed(ctx, "chest pain with ECG changes")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.Len(t, first, 384)

	var norm float64
	for _, v := range first {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashingEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	embedder, err := NewHashingEmbedder(8)
	require.NoError(t, err)

	vec, err := embedder.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

func TestHashingEmbedder_RejectsBadDimension(t *testing.T) {
	_, err := NewHashingEmbedder(0)
	assert.Error(t, err)
}

func TestDevSnapshot_RetrievesRelevantPassage(t *testing.T) {
	embedder, err := NewHashingEmbedder(384)
	require.NoError(t, err)
	ctx := context.Background()

	idx, err := DevSnapshot(ctx, embedder)
	require.NoError(t, err)

	query, err := embedder.Embed(ctx, "initial investigations for acute chest pain with serial troponin and a 12-lead ECG within 10 minutes")
	require.NoError(t, err)
	passages, err := idx.Search(ctx, query, 3)
	require.NoError(t, err)
	require.Len(t, passages, 3)

	assert.Equal(t, "cardiology.md", passages[0].Source)
	for i := 1; i < len(passages); i++ {
		assert.LessOrEqual(t, passages[i].Score, passages[i-1].Score)
	}
	assert.False(t, math.IsNaN(passages[0].Score))
}
