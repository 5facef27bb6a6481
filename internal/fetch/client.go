// Package fetch downloads the source snapshots and per-group TTP layers.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"aptintel/internal/aptcore"
)

// Client downloads remote documents to local files.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a Client with the given request timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Download fetches url into dest. The body is written to a temporary file next
// to dest and renamed over it once complete, so a failed download keeps the
// previous file. Failures wrap aptcore.ErrSourceUnavailable.
func (c *Client) Download(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid url %q: %v", aptcore.ErrSourceUnavailable, url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", aptcore.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: GET %s: %s", aptcore.ErrSourceUnavailable, url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return n, fmt.Errorf("%w: reading %s: %v", aptcore.ErrSourceUnavailable, url, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return n, fmt.Errorf("failed to move download to %s: %w", dest, err)
	}

	c.logger.Debug("download complete", zap.String("url", url), zap.String("dest", dest), zap.Int64("bytes", n))
	return n, nil
}
