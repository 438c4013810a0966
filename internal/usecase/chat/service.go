// Package chat implements the retrieval-and-grounding pipeline behind
// POST /api/chat: query rewriting, nearest-neighbor retrieval, parent
// deduplication, cross-encoder reranking with a relevance floor, the
// grounding hard stop, and prompt assembly for the generation model.
package chat

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gekina/medichat/internal/domain"
	"github.com/gekina/medichat/internal/metrics"
)

// Service runs one pipeline execution per request. All collaborators are
// shared read-only; the service itself holds no per-request state.
type Service struct {
	corpus     Corpus
	embed      Embedder
	rerank     Reranker
	generate   Generator
	logger     *zap.Logger
	searchK    int
	topN       int
	scoreFloor float64
}

// New creates a chat service. A nil corpus puts the service in the
// permanently-degraded offline state.
func New(corpus Corpus, embed Embedder, rerank Reranker, generate Generator, logger *zap.Logger) *Service {
	return &Service{
		corpus:     corpus,
		embed:      embed,
		rerank:     rerank,
		generate:   generate,
		logger:     logger,
		searchK:    10,
		topN:       3,
		scoreFloor: -2.0,
	}
}

// WithTuning overrides the retrieval depth, survivor cap and relevance floor.
// The defaults are tied to the bge-reranker-v2-m3 score distribution.
func (s *Service) WithTuning(searchK, topN int, scoreFloor float64) *Service {
	if searchK > 0 {
		s.searchK = searchK
	}
	if topN > 0 {
		s.topN = topN
	}
	s.scoreFloor = scoreFloor
	return s
}

// Ask answers one user message. Every return path is terminal for the
// request; degraded conditions (offline corpus, retrieval failure, nothing
// relevant) come back as in-band fixed responses, and only a generation
// failure is returned as an error.
func (s *Service) Ask(
	ctx context.Context, message string, history []domain.ConversationTurn,
) (domain.Answer, error) {
	if s.corpus == nil {
		metrics.ChatOutcomesTotal.WithLabelValues("offline").Inc()
		return domain.Answer{Response: offlineResponse, URLs: []string{}}, nil
	}

	searchQuery := rewriteQuery(message, history)
	if searchQuery != message {
		s.logger.Debug("Contextual query rewrite", zap.String("search_query", searchQuery))
	}

	candidates, err := s.retrieve(ctx, searchQuery)
	if err != nil {
		s.logger.Error("Retrieval failed", zap.Error(err))
		metrics.ChatOutcomesTotal.WithLabelValues("retrieval_error").Inc()
		return domain.Answer{Response: retrievalErrorResponse, URLs: []string{}}, nil
	}

	survivors := s.rerankCandidates(ctx, searchQuery, candidates)

	// Hard stop. Retrieval alone always returns nearest neighbors, relevant
	// or not; only the reranker verdict is allowed to gate generation.
	if len(survivors) == 0 {
		metrics.ChatOutcomesTotal.WithLabelValues("refused").Inc()
		return domain.Answer{Response: refusalResponse, URLs: []string{}}, nil
	}

	passages := make([]string, len(survivors))
	for i, c := range survivors {
		passages[i] = c.Text
	}

	// The model sees the original message; the rewritten query exists only
	// for retrieval and scoring.
	response, err := s.generate.Generate(ctx, buildSystemPrompt(passages), message)
	if err != nil {
		metrics.ChatOutcomesTotal.WithLabelValues("generation_error").Inc()
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	metrics.ChatOutcomesTotal.WithLabelValues("answered").Inc()
	return domain.Answer{Response: response, URLs: collectURLs(survivors)}, nil
}

// retrieve embeds the search query, probes the index, and deduplicates the
// hits by parent document.
func (s *Service) retrieve(ctx context.Context, searchQuery string) ([]domain.RetrievalCandidate, error) {
	emb, err := s.embed.Embed(ctx, searchQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.corpus.Search(emb.Embedding, s.searchK)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	return s.dedupByParent(hits), nil
}

// dedupByParent collapses hits sharing a parent document, keeping the first
// (best-ranked) chunk per parent. A stable filter: surviving elements keep
// their retrieval order.
func (s *Service) dedupByParent(hits []domain.Hit) []domain.RetrievalCandidate {
	seen := make(map[string]struct{}, len(hits))
	candidates := make([]domain.RetrievalCandidate, 0, len(hits))

	for rank, hit := range hits {
		chunk, ok := s.corpus.ChunkAt(hit.ChunkID)
		if !ok {
			continue
		}
		if _, dup := seen[chunk.ParentID]; dup {
			continue
		}
		seen[chunk.ParentID] = struct{}{}

		candidates = append(candidates, domain.RetrievalCandidate{
			ChunkID:        chunk.ChunkID,
			Text:           chunk.Text,
			SourceURL:      chunk.SourceURL,
			SimilarityRank: rank,
		})
	}
	return candidates
}

// rerankCandidates scores candidates with the cross-encoder, sorts by score
// descending, caps at topN and drops everything at or below the relevance
// floor. If the scoring call fails the first topN candidates pass through in
// retrieval order with a zero score and no floor — availability over strict
// grounding when the reranker itself is down.
func (s *Service) rerankCandidates(
	ctx context.Context, searchQuery string, candidates []domain.RetrievalCandidate,
) []domain.RetrievalCandidate {
	if len(candidates) == 0 {
		return nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	scores, err := s.rerank.Score(ctx, searchQuery, texts)
	if err != nil || len(scores) != len(candidates) {
		if err == nil {
			err = fmt.Errorf("got %d scores for %d candidates", len(scores), len(candidates))
		}
		s.logger.Warn("Reranker unavailable, falling back to retrieval order", zap.Error(err))
		if len(candidates) > s.topN {
			candidates = candidates[:s.topN]
		}
		return candidates
	}

	ranked := make([]domain.RetrievalCandidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].RerankScore = scores[i]
	}

	// Stable sort keeps retrieval order among equal scores.
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].RerankScore > ranked[b].RerankScore
	})

	if len(ranked) > s.topN {
		ranked = ranked[:s.topN]
	}

	survivors := ranked[:0]
	for _, c := range ranked {
		if c.RerankScore > s.scoreFloor {
			survivors = append(survivors, c)
		}
	}
	return survivors
}

// collectURLs gathers the unique source URLs of the surviving passages,
// dropping placeholders of five characters or fewer.
func collectURLs(survivors []domain.RetrievalCandidate) []string {
	urls := make([]string, 0, len(survivors))
	seen := make(map[string]struct{}, len(survivors))

	for _, c := range survivors {
		u := c.SourceURL
		if len(u) <= 5 {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
