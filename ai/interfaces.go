package ai

import "context"

// Answerer turns a question and the text of the documents selected for it
// into a natural-language answer.
// Implementations must be thread-safe for concurrent use.
type Answerer interface {
	// Answer generates a response to question grounded in sources.
	// Returns ErrNoSources if sources is empty.
	// Returns an error if generation fails.
	Answer(ctx context.Context, question string, sources []Source) (string, error)
}

// Source is one document handed to an Answerer.
type Source struct {
	// Content is the extracted text of the document.
	Content string

	// SourceID identifies the document, usually its corpus-relative path.
	SourceID string

	// Relevance is the selector's score for the document.
	Relevance float64
}
