// Package ranker turns free-text oracle answers into ranking inputs: relevance
// scores, key terms and profile summaries.
package ranker

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ScoreKind tags which variant a Score holds.
type ScoreKind int

const (
	KindUnparseable ScoreKind = iota
	KindNumeric
)

// Score is the parsed relevance judgment for one candidate. A Numeric score
// is normalized to [0,1]. An Unparseable score keeps the raw response.
type Score struct {
	Kind  ScoreKind
	Value float64
	Raw   string
}

func Numeric(v float64) Score {
	return Score{Kind: KindNumeric, Value: v}
}

func Unparseable(raw string) Score {
	return Score{Kind: KindUnparseable, Raw: raw}
}

// Rank is the value used for ordering. Unparseable scores rank as 0.
func (s Score) Rank() float64 {
	if s.Kind != KindNumeric {
		return 0
	}
	return s.Value
}

var (
	outOfHundred = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(?:%|/\s*100\b)`)
	anyNumber    = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

var scoreKeys = []string{"score", "match_score", "fit_score", "relevance"}

// ParseScore reads a 0-100 relevance judgment. It accepts a bare number, a
// percentage, "N/100", a JSON object with a score field, and any of these
// wrapped in markdown fences or surrounded by prose, provided the text holds
// exactly one candidate number. Anything else, including values outside
// 0-100, is Unparseable.
func ParseScore(raw string) Score {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return Unparseable(raw)
	}

	if v, err := strconv.ParseFloat(strings.TrimSuffix(cleaned, "%"), 64); err == nil {
		return normalize(v, raw)
	}

	if strings.HasPrefix(cleaned, "{") {
		var data map[string]any
		if err := json.Unmarshal([]byte(cleaned), &data); err == nil {
			for _, key := range scoreKeys {
				if v, ok := coerceFloat(data[key]); ok {
					return normalize(v, raw)
				}
			}
		}
		return Unparseable(raw)
	}

	if m := outOfHundred.FindAllStringSubmatch(cleaned, -1); len(m) == 1 {
		v, err := strconv.ParseFloat(m[0][1], 64)
		if err == nil {
			return normalize(v, raw)
		}
	}
	if m := anyNumber.FindAllString(cleaned, -1); len(m) == 1 {
		v, err := strconv.ParseFloat(m[0], 64)
		if err == nil {
			return normalize(v, raw)
		}
	}
	return Unparseable(raw)
}

func normalize(v float64, raw string) Score {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return Unparseable(raw)
	}
	return Numeric(v / 100)
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`*")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(val), "%"), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
