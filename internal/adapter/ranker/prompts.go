package ranker

import (
	_ "embed"
	"strconv"
	"strings"
)

//go:embed prompts/relevance.md
var relevanceTemplate string

//go:embed prompts/key_terms.md
var keyTermsTemplate string

//go:embed prompts/summary.md
var summaryTemplate string

// RelevancePrompt asks for a 0-100 fit score of summary against job. Key
// terms, unless empty or the sentinel, are listed as weighting hints.
func RelevancePrompt(summary, job string, keyTerms []string) string {
	var terms string
	if !IsSentinel(keyTerms) {
		var b strings.Builder
		b.WriteString("\nImportant job keywords and skills (give higher weight to these when evaluating the candidate):\n")
		for _, t := range keyTerms {
			b.WriteString("• ")
			b.WriteString(t)
			b.WriteString("\n")
		}
		terms = b.String()
	}
	return strings.NewReplacer(
		"{{SUMMARY}}", strings.TrimSpace(summary),
		"{{JOB}}", strings.TrimSpace(job),
		"{{KEY_TERMS}}", terms,
	).Replace(relevanceTemplate)
}

func KeyTermsPrompt(job string) string {
	return strings.ReplaceAll(keyTermsTemplate, "{{JOB}}", strings.TrimSpace(job))
}

func SummaryPrompt(text string, words int) string {
	return strings.NewReplacer(
		"{{WORDS}}", strconv.Itoa(words),
		"{{TEXT}}", strings.TrimSpace(text),
	).Replace(summaryTemplate)
}
