package domain

import "context"

// Reranker scores the joint relevance of (query, passage) pairs with a
// cross-encoder. Scores come back in input order; the caller sorts.
// On error the caller falls back to retrieval order, so implementations must
// not partially succeed.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Generator produces the grounded answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}
