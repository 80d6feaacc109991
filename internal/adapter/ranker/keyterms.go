package ranker

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"resumematch/internal/logger"
	"resumematch/internal/port"
)

// NoKeyTerms is the single term returned when extraction fails.
const NoKeyTerms = "No key terms extracted"

// MaxKeyTerms caps how many terms are passed into scoring prompts.
const MaxKeyTerms = 20

var bulletPrefix = regexp.MustCompile(`^(?:[•\-*·▪●]\s*|\d+[.)]\s+)`)

// KeyTermWeighter extracts salient terms from a job description so scoring
// prompts can weight them.
type KeyTermWeighter struct {
	oracle port.Oracle
	log    *zap.Logger
}

// NewKeyTermWeighter returns a weighter. A nil oracle always yields the sentinel.
func NewKeyTermWeighter(oracle port.Oracle, log *zap.Logger) *KeyTermWeighter {
	return &KeyTermWeighter{oracle: oracle, log: logger.OrNop(log)}
}

// Extract never fails: an oracle error or an empty answer yields
// []string{NoKeyTerms}.
func (w *KeyTermWeighter) Extract(ctx context.Context, jobText string) []string {
	if w.oracle == nil || strings.TrimSpace(jobText) == "" {
		return []string{NoKeyTerms}
	}

	raw, err := w.oracle.Infer(ctx, KeyTermsPrompt(jobText))
	if err != nil {
		w.log.Warn("key term extraction failed", zap.Error(err))
		return []string{NoKeyTerms}
	}

	terms := ParseKeyTerms(raw)
	if len(terms) == 0 {
		w.log.Warn("no key terms in oracle response",
			zap.String("response_preview", logger.TruncateForLog(raw, maxPreview)))
		return []string{NoKeyTerms}
	}
	return terms
}

// ParseKeyTerms reads one term per line, dropping bullets and numbering.
// Terms are deduplicated case-insensitively, first spelling wins.
func ParseKeyTerms(raw string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, line := range strings.Split(stripFences(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Headings such as "Key terms:" carry no term.
		if !bulletPrefix.MatchString(line) && strings.HasSuffix(line, ":") {
			continue
		}
		term := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		term = strings.Trim(term, "*_`\"")
		term = strings.TrimSpace(term)
		if term == "" || strings.EqualFold(term, NoKeyTerms) {
			continue
		}

		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, term)
		if len(terms) == MaxKeyTerms {
			break
		}
	}
	return terms
}

// IsSentinel reports whether terms carries no usable key terms.
func IsSentinel(terms []string) bool {
	return len(terms) == 0 || (len(terms) == 1 && terms[0] == NoKeyTerms)
}
