package chat

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/gekina/medichat/internal/domain"
)

// --- Mocks ---

// mockCorpus serves a fixed chunk list; Search returns hits in slice order.
type mockCorpus struct {
	chunks    []domain.Chunk
	searchErr error
	lastK     int
}

func (m *mockCorpus) Search(_ []float32, k int) ([]domain.Hit, error) {
	m.lastK = k
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	n := len(m.chunks)
	if k < n {
		n = k
	}
	hits := make([]domain.Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = domain.Hit{ChunkID: m.chunks[i].ChunkID, Score: float32(n - i)}
	}
	return hits, nil
}

func (m *mockCorpus) ChunkAt(id int) (domain.Chunk, bool) {
	for _, c := range m.chunks {
		if c.ChunkID == id {
			return c, true
		}
	}
	return domain.Chunk{}, false
}

type mockEmbedder struct {
	vec      []float32
	err      error
	lastText string
	calls    int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.lastText = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockReranker struct {
	scores    []float64
	err       error
	lastQuery string
	lastTexts []string
	calls     int
}

func (m *mockReranker) Score(_ context.Context, query string, passages []string) ([]float64, error) {
	m.calls++
	m.lastQuery = query
	m.lastTexts = passages
	if m.err != nil {
		return nil, m.err
	}
	if m.scores != nil {
		return m.scores, nil
	}
	// default: neutral descending scores preserving retrieval order
	scores := make([]float64, len(passages))
	for i := range scores {
		scores[i] = float64(len(passages) - i)
	}
	return scores, nil
}

type mockGenerator struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
	calls      int
}

func (m *mockGenerator) Generate(_ context.Context, systemPrompt, userMessage string) (string, error) {
	m.calls++
	m.lastSystem = systemPrompt
	m.lastUser = userMessage
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// chunksWithParents builds one chunk per parent id given, texts "text-0"...
func chunksWithParents(parents ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(parents))
	for i, p := range parents {
		chunks[i] = domain.Chunk{
			ChunkID:  i,
			ParentID: p,
			Text:     "text-" + strconv.Itoa(i),
		}
	}
	return chunks
}

func newTestService(c *mockCorpus, e *mockEmbedder, r *mockReranker, g *mockGenerator) *Service {
	var corpus Corpus
	if c != nil {
		corpus = c
	}
	return New(corpus, e, r, g, zap.NewNop())
}
