package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func writeParquet[T any](t *testing.T, rows []T) string {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[T](&buf)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write parquet rows: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close parquet writer: %v", err)
	}

	path := filepath.Join(t.TempDir(), "chunks.parquet")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadChunks(t *testing.T) {
	type row struct {
		Text     string `parquet:"jawaban_bersih"`
		ParentID string `parquet:"parent_id"`
		URL      string `parquet:"referensi"`
	}
	path := writeParquet(t, []row{
		{Text: "Demam tifoid disebabkan bakteri Salmonella.", ParentID: "doc-1", URL: "https://www.alodokter.com/tipes"},
		{Text: "Gejala awal berupa demam dan sakit kepala.", ParentID: "doc-1", URL: "https://www.alodokter.com/tipes"},
		{Text: "Minum air putih yang cukup.", ParentID: "doc-2", URL: ""},
	})

	chunks, binding, err := readChunks(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if binding.textName != "jawaban_bersih" {
		t.Errorf("text column = %q", binding.textName)
	}
	if binding.urlName != "referensi" {
		t.Errorf("url column = %q", binding.urlName)
	}

	if chunks[0].ChunkID != 0 || chunks[2].ChunkID != 2 {
		t.Errorf("chunk ids must follow row order: %+v", chunks)
	}
	if chunks[1].ParentID != "doc-1" {
		t.Errorf("parent id = %q", chunks[1].ParentID)
	}
	if chunks[0].SourceURL != "https://www.alodokter.com/tipes" {
		t.Errorf("source url = %q", chunks[0].SourceURL)
	}
	if !strings.Contains(chunks[2].Text, "air putih") {
		t.Errorf("text = %q", chunks[2].Text)
	}
}

func TestReadChunks_ParentIDFallsBackToRowNumber(t *testing.T) {
	type row struct {
		Text string `parquet:"chunk_text"`
		URL  string `parquet:"url"`
	}
	path := writeParquet(t, []row{
		{Text: "satu", URL: "https://example.com/a"},
		{Text: "dua", URL: "https://example.com/b"},
	})

	chunks, binding, err := readChunks(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if binding.parentID != -1 {
		t.Errorf("parent_id binding = %d, want -1", binding.parentID)
	}
	if binding.textName != "chunk_text" {
		t.Errorf("text column = %q", binding.textName)
	}
	if chunks[0].ParentID != "0" || chunks[1].ParentID != "1" {
		t.Errorf("fallback parent ids = %q, %q", chunks[0].ParentID, chunks[1].ParentID)
	}
}

func TestReadChunks_URLColumnCaseInsensitive(t *testing.T) {
	type row struct {
		Text string `parquet:"jawaban_bersih"`
		URL  string `parquet:"Link"`
	}
	path := writeParquet(t, []row{{Text: "teks", URL: "https://example.com"}})

	chunks, binding, err := readChunks(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if binding.urlName != "Link" {
		t.Errorf("url column = %q", binding.urlName)
	}
	if chunks[0].SourceURL != "https://example.com" {
		t.Errorf("source url = %q", chunks[0].SourceURL)
	}
}

func TestReadChunks_MissingTextColumn(t *testing.T) {
	type row struct {
		Other string `parquet:"other"`
	}
	path := writeParquet(t, []row{{Other: "x"}})

	_, _, err := readChunks(path)
	if err == nil || !strings.Contains(err.Error(), "neither jawaban_bersih nor chunk_text") {
		t.Fatalf("expected missing-column error, got %v", err)
	}
}
