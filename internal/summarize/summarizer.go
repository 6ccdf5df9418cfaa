// Package summarize wraps the external language-model API used to generate
// text summaries.
package summarize

import "context"

// Summarizer generates a summary for arbitrary input text. Implementations
// may fail or time out; callers treat errors as upstream failures.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}
