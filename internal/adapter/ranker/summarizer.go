package ranker

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"resumematch/internal/logger"
	"resumematch/internal/port"
)

const maxPreview = 200

// Summarizer produces the stored profile summary. With an oracle it asks for
// a short prose summary. Without one, or when the oracle fails, it keeps the
// leading fallbackChars runes of the text.
type Summarizer struct {
	oracle        port.Oracle
	words         int
	fallbackChars int
	log           *zap.Logger
}

func NewSummarizer(oracle port.Oracle, words, fallbackChars int, log *zap.Logger) *Summarizer {
	if words <= 0 {
		words = 150
	}
	if fallbackChars <= 0 {
		fallbackChars = 1000
	}
	return &Summarizer{oracle: oracle, words: words, fallbackChars: fallbackChars, log: logger.OrNop(log)}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if s.oracle == nil {
		return Truncate(text, s.fallbackChars), nil
	}

	out, err := s.oracle.Infer(ctx, SummaryPrompt(text, s.words))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.log.Warn("oracle summary failed, keeping leading text", zap.Error(err))
		return Truncate(text, s.fallbackChars), nil
	}
	if out = strings.TrimSpace(stripFences(out)); out == "" {
		return Truncate(text, s.fallbackChars), nil
	}
	return out, nil
}

// Truncate keeps at most n runes of the trimmed text.
func Truncate(text string, n int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return strings.TrimSpace(string([]rune(text)[:n]))
}
