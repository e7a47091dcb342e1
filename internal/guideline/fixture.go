package guideline

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Entry is one indexed passage with its precomputed embedding.
type Entry struct {
	Embedding []float32
	Text      string
	Source    string
}

// FixtureIndex is an in-memory cosine-similarity index over a fixed
// snapshot of guideline passages. It substitutes for an external vector
// database in development and tests while keeping the same contract:
// cosine distance, top-k, descending score.
type FixtureIndex struct {
	dim     int
	entries []Entry
}

// NewFixtureIndex builds the index, rejecting entries whose embedding
// dimension disagrees with the snapshot's.
func NewFixtureIndex(dim int, entries []Entry) (*FixtureIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return nil, fmt.Errorf("entry %d: embedding dimension %d, want %d", i, len(e.Embedding), dim)
		}
	}
	idx := &FixtureIndex{dim: dim}
	idx.entries = append(idx.entries, entries...)
	return idx, nil
}

// Search returns the k nearest passages by cosine similarity, descending.
// Ties break by insertion order so results stay deterministic.
func (idx *FixtureIndex) Search(_ context.Context, embedding []float32, k int) ([]Passage, error) {
	if len(embedding) != idx.dim {
		return nil, fmt.Errorf("query embedding dimension %d, want %d", len(embedding), idx.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	type scored struct {
		pos   int
		score float64
	}
	scoredEntries := make([]scored, 0, len(idx.entries))
	for i, e := range idx.entries {
		scoredEntries = append(scoredEntries, scored{pos: i, score: cosine(embedding, e.Embedding)})
	}
	sort.SliceStable(scoredEntries, func(a, b int) bool {
		return scoredEntries[a].score > scoredEntries[b].score
	})

	if k > len(scoredEntries) {
		k = len(scoredEntries)
	}
	passages := make([]Passage, 0, k)
	for _, s := range scoredEntries[:k] {
		entry := idx.entries[s.pos]
		passages = append(passages, Passage{
			Text:   entry.Text,
			Source: entry.Source,
			Score:  s.score,
		})
	}
	return passages, nil
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
