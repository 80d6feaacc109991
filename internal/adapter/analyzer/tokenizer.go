package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits resume and job text into lowercase terms. Symbols that
// are part of technology names (c++, c#, node.js) survive tokenization.
type Tokenizer struct {
	stopwords map[string]struct{}
	fold      bool
}

// NewTokenizer creates a Tokenizer. With folding enabled, simple plurals
// are reduced to their singular form ("engineers" -> "engineer").
func NewTokenizer(fold bool) *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
		fold:      fold,
	}
}

// Tokenize splits text into tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(strings.TrimRight(word, "."))
		if len([]rune(word)) < 2 {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		if t.fold {
			word = foldPlural(word)
		}
		tokens = append(tokens, word)
	}

	return tokens
}

func foldPlural(word string) string {
	n := len(word)
	if n <= 3 || word[n-1] != 's' || strings.ContainsAny(word, ".+#_0123456789") {
		return word
	}
	switch word[n-2] {
	case 's', 'u', 'i', 'e':
		return word
	}
	return word[:n-1]
}

// splitWords keeps letters, digits and the joiners used in technology names.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' ||
			(current.Len() > 0 && (r == '+' || r == '#' || r == '.')) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

// defaultStopwords returns common English stopwords plus filler that shows
// up in nearly every job posting.
func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
		"seeking", "looking", "candidate", "role", "position", "ideal",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
