package port

import "context"

// Oracle is a language model asked to judge or extract from text.
// Responses are free text; callers must parse defensively.
type Oracle interface {
	Infer(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// Summarizer condenses a profile's source text into its stored summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// KeyTermExtractor pulls salient terms out of a job description. It never
// fails; an unusable answer is reported as a single sentinel term.
type KeyTermExtractor interface {
	Extract(ctx context.Context, jobText string) []string
}
