package port

import "resumematch/internal/domain"

type Chunker interface {
	Chunk(profileID, text string, metadata domain.Metadata) []domain.Chunk
}

// Classifier decides whether text is worth ingesting. It must not do I/O.
type Classifier interface {
	Classify(text string) domain.Verdict
}
