package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/gekina/medichat/internal/config"
	"github.com/gekina/medichat/internal/domain"
)

// Load fetches the corpus artifacts and builds the in-memory store. Called
// once at startup; on error the caller runs without a corpus (chat degrades
// to the fixed offline response, the process does not crash).
func Load(ctx context.Context, cfg config.CorpusConfig, logger *zap.Logger) (*Store, error) {
	dl := newDownloader(cfg.HFToken, cfg.DataDir, logger)

	chunksPath, err := dl.Fetch(ctx, cfg.DatasetID, cfg.ChunksFile)
	if err != nil {
		return nil, fmt.Errorf("fetch chunk table: %w", err)
	}
	indexPath, err := dl.Fetch(ctx, cfg.DatasetID, cfg.IndexFile)
	if err != nil {
		return nil, fmt.Errorf("fetch vector index: %w", err)
	}

	chunks, binding, err := readChunks(chunksPath)
	if err != nil {
		return nil, fmt.Errorf("read chunk table: %w", err)
	}

	index, err := ReadFlatIndex(indexPath)
	if err != nil {
		return nil, fmt.Errorf("read vector index: %w", err)
	}

	// Row i of the chunk table must own vector i.
	if index.Count() != len(chunks) {
		return nil, fmt.Errorf("index has %d vectors for %d chunks", index.Count(), len(chunks))
	}

	logger.Info("Corpus loaded",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimensions", index.Dim()),
		zap.String("text_column", binding.textName),
		zap.String("url_column", binding.urlName),
		zap.Bool("has_parent_id", binding.parentID != -1),
	)

	return &Store{chunks: chunks, index: index}, nil
}

// readChunks streams the parquet chunk table into memory. ChunkID is the
// global row number; ParentID falls back to the row number when the schema
// has no parent_id column.
func readChunks(path string) ([]domain.Chunk, columnBinding, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, columnBinding{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, columnBinding{}, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, columnBinding{}, fmt.Errorf("open parquet: %w", err)
	}

	binding, err := resolveColumns(pf)
	if err != nil {
		return nil, columnBinding{}, err
	}

	chunks := make([]domain.Chunk, 0, pf.NumRows())
	seq := 0

	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		buf := make([]parquet.Row, 1000)

		for {
			cnt, readErr := rows.ReadRows(buf)
			for i := 0; i < cnt; i++ {
				chunks = append(chunks, rowToChunk(buf[i], binding, seq))
				seq++
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, binding, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}

	return chunks, binding, nil
}

// rowToChunk extracts a chunk from a generic parquet row by column index.
func rowToChunk(row parquet.Row, cols columnBinding, seq int) domain.Chunk {
	c := domain.Chunk{ChunkID: seq}

	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case cols.text:
			c.Text = v.String()
		case cols.parentID:
			c.ParentID = v.String()
		case cols.url:
			c.SourceURL = v.String()
		}
	}

	if c.ParentID == "" {
		c.ParentID = strconv.Itoa(seq)
	}
	return c
}
