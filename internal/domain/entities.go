package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Metadata keys the index writes onto every chunk.
const (
	MetaProfileID = "profile_id"
	MetaChunkSeq  = "chunk_seq"
)

// Metadata is caller-supplied profile metadata.
type Metadata map[string]string

// Clone returns a copy that shares nothing with m.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate rejects empty keys and keys reserved for chunk bookkeeping.
func (m Metadata) Validate() error {
	for k, v := range m {
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			return fmt.Errorf("%w: metadata %q is not valid UTF-8", ErrValidation, k)
		}
		switch k {
		case "":
			return fmt.Errorf("%w: empty metadata key", ErrValidation)
		case MetaProfileID, MetaChunkSeq:
			return fmt.Errorf("%w: metadata key %q is reserved", ErrValidation, k)
		}
	}
	return nil
}

type Profile struct {
	ID        string     `json:"id"`
	Summary   string     `json:"summary"`
	Metadata  Metadata   `json:"metadata,omitempty"`
	Feedback  []Feedback `json:"feedback,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Feedback struct {
	Timestamp time.Time `json:"timestamp"`
	Positive  bool      `json:"is_positive"`
	Comment   string    `json:"text,omitempty"`
}

// Chunk is one embedded segment of a profile's source text.
type Chunk struct {
	ID        string
	ProfileID string
	Seq       int
	Text      string
	Vector    []float32
	Metadata  Metadata
}

// ChunkID derives the chunk identity from its owner and sequence number.
func ChunkID(profileID string, seq int) string {
	return fmt.Sprintf("%s_chunk_%d", profileID, seq)
}

// ChunkHit is a nearest-neighbour result. Lower distance is closer.
type ChunkHit struct {
	ChunkID   string
	ProfileID string
	Seq       int
	Metadata  Metadata
	Distance  float64
}

// Verdict is the admissibility decision for a candidate document.
type Verdict struct {
	Admissible bool    `json:"is_resume"`
	Confidence float64 `json:"confidence"`
	Score      int     `json:"score"`
	Rationale  string  `json:"explanation"`
}

type MatchResult struct {
	ProfileID string   `json:"id"`
	Summary   string   `json:"summary"`
	Score     float64  `json:"match_score"`
	Metadata  Metadata `json:"metadata,omitempty"`
}

// MatchReport is a ranking plus the key terms that biased it.
type MatchReport struct {
	KeyTerms []string      `json:"key_terms"`
	Results  []MatchResult `json:"results"`
}

type FeedbackStats struct {
	Positive             int `json:"total_positive"`
	Negative             int `json:"total_negative"`
	ProfilesWithFeedback int `json:"resume_count_with_feedback"`
	TotalProfiles        int `json:"total_resume_count"`
}
