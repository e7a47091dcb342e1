// Package guideline wraps vector-similarity search over clinical
// guideline passages. The index is an injected read-only dependency:
// shared across all sessions, never mutated after construction, so no
// locking is needed on the search path.
package guideline

import (
	"context"
)

// Passage is one retrieved guideline chunk with its similarity score.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Retriever searches a fixed index snapshot. Results are ordered by
// descending score and are deterministic for a given snapshot; the
// Planner treats them as advisory context, never as forced actions.
type Retriever interface {
	Search(ctx context.Context, embedding []float32, k int) ([]Passage, error)
}

// Embedder converts query text into the index's vector space. The model
// behind it is a black box.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
