// Corpus artifact download from HuggingFace Hub. Already-present files are
// reused, so a mounted data volume survives restarts without refetching.
package corpus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const hfDatasetBase = "https://huggingface.co/datasets"

// downloader fetches dataset files from HuggingFace.
type downloader struct {
	token   string
	dataDir string
	client  *http.Client
	logger  *zap.Logger
}

func newDownloader(token, dataDir string, logger *zap.Logger) *downloader {
	return &downloader{
		token:   token,
		dataDir: dataDir,
		client: &http.Client{
			Timeout: 30 * time.Minute,
		},
		logger: logger,
	}
}

// Fetch downloads one dataset file into dataDir and returns its local path.
// An existing non-empty file is returned as-is.
func (d *downloader) Fetch(ctx context.Context, datasetID, filename string) (string, error) {
	if err := os.MkdirAll(d.dataDir, 0o750); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", d.dataDir, err)
	}

	local := filepath.Join(d.dataDir, filename)
	if info, err := os.Stat(local); err == nil && info.Size() > 0 {
		d.logger.Info("Corpus artifact already present",
			zap.String("file", filename),
			zap.Int64("size", info.Size()),
		)
		return local, nil
	}

	url := fmt.Sprintf("%s/%s/resolve/main/%s", hfDatasetBase, datasetID, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", filename, resp.Status)
	}

	// Write to a temp file first so a partial download never passes the
	// size check above.
	tmp, err := os.CreateTemp(d.dataDir, filename+".part-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", filename, err)
	}

	if err := os.Rename(tmp.Name(), local); err != nil {
		return "", fmt.Errorf("finalize %s: %w", filename, err)
	}

	d.logger.Info("Corpus artifact downloaded",
		zap.String("file", filename),
		zap.Int64("bytes", written),
	)
	return local, nil
}
