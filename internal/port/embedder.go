package port

import (
	"context"

	"resumematch/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex stores chunk vectors and answers nearest-neighbour queries.
type VectorIndex interface {
	// Upsert writes chunks keyed by chunk ID. Re-writing an ID replaces it.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// Query returns at most k hits ordered by ascending distance.
	Query(ctx context.Context, vector []float32, k int) ([]domain.ChunkHit, error)

	// Prune removes chunks of profileID whose sequence number is >= keep.
	Prune(ctx context.Context, profileID string, keep int) error

	// DeleteProfile removes every chunk owned by profileID.
	DeleteProfile(ctx context.Context, profileID string) error

	// Count returns the number of chunks in the index.
	Count() (int, error)
}
