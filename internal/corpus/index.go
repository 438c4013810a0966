package corpus

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/gekina/medichat/internal/domain"
)

// flatMagic identifies a serialized flat inner-product index:
// magic, uint32 LE dimension, uint32 LE vector count, then count*dim float32 LE.
// Row i of the chunk table owns vector i.
const flatMagic = "FLATIDX1"

// FlatIndex is an exact inner-product nearest-neighbor index kept fully in
// memory. Vectors are stored row-major in one contiguous slice. Read-only
// after load, safe for concurrent Search.
type FlatIndex struct {
	dim     int
	vectors []float32
}

// ReadFlatIndex loads a flat index artifact from disk.
func ReadFlatIndex(path string) (*FlatIndex, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	return readFlatIndex(bufio.NewReaderSize(f, 1<<20))
}

func readFlatIndex(r io.Reader) (*FlatIndex, error) {
	magic := make([]byte, len(flatMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}
	if string(magic) != flatMagic {
		return nil, fmt.Errorf("not a flat index file (magic %q)", magic)
	}

	var dim, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read index dimension: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read index count: %w", err)
	}
	if dim == 0 {
		return nil, fmt.Errorf("index dimension is zero")
	}

	total := int(dim) * int(count)
	raw := make([]byte, total*4)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read index vectors: %w", err)
	}

	vectors := make([]float32, total)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	return &FlatIndex{dim: int(dim), vectors: vectors}, nil
}

// NewFlatIndex builds an index from pre-normalized vectors. Used by tests and
// offline tooling; the service loads artifacts via ReadFlatIndex.
func NewFlatIndex(dim int, vectors [][]float32) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	flat := make([]float32, 0, dim*len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		flat = append(flat, v...)
	}
	return &FlatIndex{dim: dim, vectors: flat}, nil
}

// Dim returns the vector dimension.
func (ix *FlatIndex) Dim() int { return ix.dim }

// Count returns the number of indexed vectors.
func (ix *FlatIndex) Count() int { return len(ix.vectors) / ix.dim }

// Search returns the top k vectors by inner product against query, highest
// first. With L2-normalized embeddings inner product equals cosine similarity.
func (ix *FlatIndex) Search(query []float32, k int) ([]domain.Hit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(query), ix.dim)
	}
	n := ix.Count()
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]domain.Hit, n)
	for i := 0; i < n; i++ {
		row := ix.vectors[i*ix.dim : (i+1)*ix.dim]
		var sum float32
		for j, q := range query {
			sum += row[j] * q
		}
		hits[i] = domain.Hit{ChunkID: i, Score: sum}
	}

	sort.Slice(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits[:k], nil
}
