package domain

// Chunk is one retrievable unit of corpus text.
// ChunkID is the row position in the loaded chunk table and, by the corpus
// artifact contract, the position of the matching vector in the index.
type Chunk struct {
	ChunkID   int
	ParentID  string
	Text      string
	SourceURL string // empty when the corpus schema has no URL column
}

// RetrievalCandidate is a transient per-request pipeline element.
type RetrievalCandidate struct {
	ChunkID        int
	Text           string
	SourceURL      string
	SimilarityRank int     // position in the nearest-neighbor result, 0-based
	RerankScore    float64 // assigned by the reranker stage
}

// Hit is a single nearest-neighbor search result.
type Hit struct {
	ChunkID int
	Score   float32 // inner product against the query vector
}
