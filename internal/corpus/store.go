// Package corpus loads the precomputed medical-knowledge artifacts (a parquet
// chunk table and a flat vector index) and serves nearest-neighbor lookups
// over them. Everything here is immutable after Load and shared read-only
// across requests.
package corpus

import (
	"fmt"

	"github.com/gekina/medichat/internal/domain"
)

// Store is the loaded, read-only corpus.
type Store struct {
	chunks []domain.Chunk
	index  *FlatIndex
}

// NewStore builds a store from already-materialized parts. Load is the
// production path; tests use this directly.
func NewStore(chunks []domain.Chunk, index *FlatIndex) (*Store, error) {
	if index.Count() != len(chunks) {
		return nil, fmt.Errorf("index has %d vectors for %d chunks", index.Count(), len(chunks))
	}
	return &Store{chunks: chunks, index: index}, nil
}

// Len returns the number of chunks.
func (s *Store) Len() int { return len(s.chunks) }

// Dim returns the index vector dimension.
func (s *Store) Dim() int { return s.index.Dim() }

// Search probes the vector index for the top k chunks by inner product.
func (s *Store) Search(query []float32, k int) ([]domain.Hit, error) {
	return s.index.Search(query, k)
}

// ChunkAt returns the chunk for an index position.
func (s *Store) ChunkAt(id int) (domain.Chunk, bool) {
	if id < 0 || id >= len(s.chunks) {
		return domain.Chunk{}, false
	}
	return s.chunks[id], true
}
