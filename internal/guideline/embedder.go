package guideline

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// HashingEmbedder embeds text by feature-hashing lowercased word tokens
// into a fixed-dimension vector, L2-normalized. It is deterministic and
// keeps the sentence-embedding contract so a real model can replace it
// without touching the index.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) (HashingEmbedder, error) {
	if dim <= 0 {
		return HashingEmbedder{}, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return HashingEmbedder{dim: dim}, nil
}

func (e HashingEmbedder) Dim() int { return e.dim }

func (e HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?()[]\"'")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[int(h.Sum32())%e.dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
