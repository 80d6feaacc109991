package chunker

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"resumematch/internal/domain"
)

// CharChunker splits text into fixed-size rune windows. Consecutive windows
// share exactly overlap runes and the last window carries whatever remains.
type CharChunker struct {
	size    int
	overlap int
}

func NewCharChunker(size, overlap int) (*CharChunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk size %d must be greater than overlap %d >= 0", domain.ErrValidation, size, overlap)
	}
	return &CharChunker{size: size, overlap: overlap}, nil
}

func (c *CharChunker) Size() int    { return c.size }
func (c *CharChunker) Overlap() int { return c.overlap }

// Split returns the windows covering text in order. Empty text yields nil.
// Windows are cut on decode boundaries, so a byte that is not valid UTF-8
// counts as one character and is kept as is.
func (c *CharChunker) Split(text string) []string {
	bounds := boundaries(text)
	n := len(bounds) - 1
	if n <= 0 {
		return nil
	}

	step := c.size - c.overlap
	segments := make([]string, 0, n/step+1)
	for start := 0; ; start += step {
		end := start + c.size
		if end > n {
			end = n
		}
		segments = append(segments, text[bounds[start]:bounds[end]])
		if end == n {
			break
		}
	}
	return segments
}

// boundaries returns the byte offset of every character in s followed by
// len(s).
func boundaries(s string) []int {
	bounds := make([]int, 0, len(s)+1)
	for i := 0; i < len(s); {
		bounds = append(bounds, i)
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	return append(bounds, len(s))
}

// Chunk splits text and stamps each segment with its owner and sequence number.
func (c *CharChunker) Chunk(profileID, text string, metadata domain.Metadata) []domain.Chunk {
	segments := c.Split(text)
	if len(segments) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, len(segments))
	for seq, segment := range segments {
		meta := metadata.Clone()
		meta[domain.MetaProfileID] = profileID
		meta[domain.MetaChunkSeq] = strconv.Itoa(seq)

		chunks[seq] = domain.Chunk{
			ID:        domain.ChunkID(profileID, seq),
			ProfileID: profileID,
			Seq:       seq,
			Text:      segment,
			Metadata:  meta,
		}
	}
	return chunks
}

// Join reverses Split for the same overlap.
func Join(segments []string, overlap int) string {
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(segments[0])
	for _, s := range segments[1:] {
		bounds := boundaries(s)
		if overlap >= len(bounds) {
			continue
		}
		b.WriteString(s[bounds[overlap]:])
	}
	return b.String()
}
