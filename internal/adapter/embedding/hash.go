package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"resumematch/internal/adapter/analyzer"
	"resumematch/internal/port"
)

// HashEmbedder is a local, deterministic embedder that feature-hashes
// tokens into a fixed number of signed buckets. It needs no network and
// gives lexical-overlap similarity, which is enough for offline use and tests.
type HashEmbedder struct {
	dimension int
	tokenizer port.Tokenizer
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 512
	}
	return &HashEmbedder{dimension: dimension, tokenizer: analyzer.NewTokenizer(true)}
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	counts := make(map[string]int)
	for _, tok := range e.tokenizer.Tokenize(text) {
		counts[tok]++
	}

	vec := make([]float64, e.dimension)
	for tok, n := range counts {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		weight := 1 + math.Log(float64(n))
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[sum%uint64(e.dimension)] += weight
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dimension)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return "hash-v1"
}
