// Package rerank talks to a cross-encoder scoring service speaking the
// text-embeddings-inference /rerank protocol (bge-reranker-v2-m3 in
// production).
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gekina/medichat/internal/domain"
	"github.com/gekina/medichat/internal/metrics"
)

// Client scores (query, passage) pairs over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// Config holds the scoring service settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Logger  *zap.Logger
}

// NewClient creates a rerank client.
func NewClient(cfg *Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

type rerankRequest struct {
	Query    string   `json:"query"`
	Texts    []string `json:"texts"`
	RawScore bool     `json:"raw_scores"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score implements domain.Reranker. Scores come back in input order; raw
// logits are requested so the relevance floor applies to the model's native
// output range.
func (c *Client) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{Query: query, Texts: passages, RawScore: true})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RerankRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return nil, fmt.Errorf("rerank request: %v: %w", err, domain.ErrRerankProviderError)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RerankRequestsTotal.WithLabelValues(c.model, "error").Inc()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank API error %d: %s: %w",
			resp.StatusCode, bytes.TrimSpace(detail), domain.ErrRerankProviderError)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		metrics.RerankRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return nil, fmt.Errorf("decode rerank response: %v: %w", err, domain.ErrRerankProviderError)
	}

	// The service returns results sorted by score; map back to input order.
	scores := make([]float64, len(passages))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(scores) {
			metrics.RerankRequestsTotal.WithLabelValues(c.model, "error").Inc()
			return nil, fmt.Errorf("rerank result index %d out of range: %w",
				r.Index, domain.ErrRerankProviderError)
		}
		scores[r.Index] = r.Score
	}

	metrics.RerankRequestsTotal.WithLabelValues(c.model, "success").Inc()
	return scores, nil
}
