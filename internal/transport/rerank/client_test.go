package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/gekina/medichat/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "bge-reranker-v2-m3",
		Logger:  zap.NewNop(),
	})
}

func TestScore(t *testing.T) {
	var gotReq rerankRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		// results come back sorted by score, not in input order
		_ = json.NewEncoder(w).Encode([]rerankResult{
			{Index: 2, Score: 1.5},
			{Index: 0, Score: -0.5},
			{Index: 1, Score: -3.0},
		})
	})

	scores, err := client.Score(context.Background(), "gejala tipes", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !gotReq.RawScore {
		t.Error("raw_scores must be requested")
	}
	if gotReq.Query != "gejala tipes" || len(gotReq.Texts) != 3 {
		t.Errorf("request = %+v", gotReq)
	}

	want := []float64{-0.5, -3.0, 1.5}
	for i, w := range want {
		if scores[i] != w {
			t.Errorf("scores[%d] = %v, want %v", i, scores[i], w)
		}
	}
}

func TestScore_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.Score(context.Background(), "q", []string{"a"})
	if !errors.Is(err, domain.ErrRerankProviderError) {
		t.Fatalf("expected ErrRerankProviderError, got %v", err)
	}
}

func TestScore_IndexOutOfRange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]rerankResult{{Index: 5, Score: 1}})
	})

	_, err := client.Score(context.Background(), "q", []string{"a"})
	if !errors.Is(err, domain.ErrRerankProviderError) {
		t.Fatalf("expected ErrRerankProviderError, got %v", err)
	}
}

func TestScore_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	})

	_, err := client.Score(context.Background(), "q", []string{"a"})
	if !errors.Is(err, domain.ErrRerankProviderError) {
		t.Fatalf("expected ErrRerankProviderError, got %v", err)
	}
}
