package corpus

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func encodeFlatIndex(t *testing.T, dim int, vectors [][]float32) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(flatMagic)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(dim)); err != nil {
		t.Fatal(err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(vectors))); err != nil {
		t.Fatal(err)
	}
	for _, v := range vectors {
		for _, x := range v {
			var raw [4]byte
			binary.LittleEndian.PutUint32(raw[:], math.Float32bits(x))
			buf.Write(raw[:])
		}
	}
	return buf.Bytes()
}

func TestReadFlatIndex(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.5, 0.5, 0},
	}
	raw := encodeFlatIndex(t, 3, vectors)

	ix, err := readFlatIndex(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ix.Dim() != 3 {
		t.Errorf("dim = %d, want 3", ix.Dim())
	}
	if ix.Count() != 3 {
		t.Errorf("count = %d, want 3", ix.Count())
	}

	hits, err := ix.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if hits[0].ChunkID != 0 || hits[1].ChunkID != 2 {
		t.Errorf("hits = %v, want [0 2 ...]", hits)
	}
}

func TestReadFlatIndex_BadMagic(t *testing.T) {
	raw := encodeFlatIndex(t, 2, [][]float32{{1, 0}})
	copy(raw, "NOTANIDX")

	_, err := readFlatIndex(bytes.NewReader(raw))
	if err == nil || !strings.Contains(err.Error(), "not a flat index") {
		t.Fatalf("expected magic error, got %v", err)
	}
}

func TestReadFlatIndex_Truncated(t *testing.T) {
	raw := encodeFlatIndex(t, 4, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}})
	_, err := readFlatIndex(bytes.NewReader(raw[:len(raw)-3]))
	if err == nil {
		t.Fatal("expected error for truncated vector data")
	}
}

func TestFlatIndexSearch_Ordering(t *testing.T) {
	ix, err := NewFlatIndex(2, [][]float32{
		{0.1, 0},
		{0.9, 0},
		{0.5, 0},
		{-1, 0},
	})
	if err != nil {
		t.Fatal(err)
	}

	hits, err := ix.Search([]float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// k is clamped to the vector count.
	if len(hits) != 4 {
		t.Fatalf("got %d hits, want 4", len(hits))
	}
	want := []int{1, 2, 0, 3}
	for i, w := range want {
		if hits[i].ChunkID != w {
			t.Errorf("hits[%d].ChunkID = %d, want %d", i, hits[i].ChunkID, w)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not descending at %d: %v", i, hits)
		}
	}
}

func TestFlatIndexSearch_DimensionMismatch(t *testing.T) {
	ix, err := NewFlatIndex(3, [][]float32{{1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ix.Search([]float32{1, 0}, 1); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestNewFlatIndex_RaggedVectors(t *testing.T) {
	if _, err := NewFlatIndex(2, [][]float32{{1, 0}, {1}}); err == nil {
		t.Fatal("expected error for wrong-length vector")
	}
}

func TestNewStore_CountMismatch(t *testing.T) {
	ix, err := NewFlatIndex(2, [][]float32{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(nil, ix); err == nil {
		t.Fatal("expected count mismatch error")
	}
}
