package chat

import (
	"context"

	"github.com/gekina/medichat/internal/domain"
)

// Corpus is the loaded chunk table plus vector index. A nil Corpus means the
// artifacts never loaded and the service answers with the fixed offline
// response.
type Corpus interface {
	Search(query []float32, k int) ([]domain.Hit, error)
	ChunkAt(id int) (domain.Chunk, bool)
}

// Embedder vectorizes the search query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Reranker scores (query, passage) pairs with a cross-encoder, in input order.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Generator produces the grounded answer.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}
