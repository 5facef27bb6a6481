package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"aptintel/internal/aptcore"
)

// Snapshot file names.
const (
	MitreFileName   = "enterprise-attack.json"
	TrackerFileName = "APT Groups and Operations.xlsx"
)

// Default source locations.
const (
	DefaultMitreURL   = "https://raw.githubusercontent.com/mitre/cti/master/enterprise-attack/enterprise-attack.json"
	DefaultTrackerURL = "https://docs.google.com/spreadsheets/d/1H9_xaxQHpWaa4O_Son4Gx0YOIzlcBWMsdvePFX68EKU/pub?output=xlsx"
)

// Source is a remote document cached on local disk.
type Source struct {
	Name string
	URL  string
	Path string
}

// Update downloads src unconditionally.
func (c *Client) Update(ctx context.Context, src Source) error {
	c.logger.Info("downloading source", zap.String("source", src.Name), zap.String("url", src.URL))
	if err := os.MkdirAll(filepath.Dir(src.Path), 0755); err != nil {
		return &aptcore.SourceError{Source: src.Name, Input: src.Path, Err: fmt.Errorf("failed to create data dir: %w", err)}
	}
	if _, err := c.Download(ctx, src.URL, src.Path); err != nil {
		return &aptcore.SourceError{Source: src.Name, Input: src.Path, Err: err}
	}
	return nil
}

// EnsureSources downloads each source whose snapshot is missing, or all of
// them when force is set. A failed source does not stop the others; the
// failures are joined in the returned error.
func (c *Client) EnsureSources(ctx context.Context, sources []Source, force bool) error {
	var errs []error
	for _, src := range sources {
		if !force {
			if info, err := os.Stat(src.Path); err == nil && !info.IsDir() {
				c.logger.Debug("source snapshot present", zap.String("source", src.Name), zap.String("path", src.Path))
				continue
			}
		}
		if err := c.Update(ctx, src); err != nil {
			c.logger.Warn("source update failed", zap.String("source", src.Name), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
