package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"aptintel/internal/aptcore"
)

// LayerResult is the outcome of downloading one group's TTP layer.
type LayerResult struct {
	Alias string
	Group *aptcore.GroupRecord
	Path  string
	Err   error
}

// DownloadLayers resolves every alias and saves the group's enterprise layer
// into dir. Each alias is attempted regardless of earlier failures.
func (c *Client) DownloadLayers(ctx context.Context, groups []aptcore.GroupRecord, aliases []string, dir string) []LayerResult {
	var results []LayerResult
	if err := os.MkdirAll(dir, 0755); err != nil {
		for _, alias := range aliases {
			results = append(results, LayerResult{Alias: alias, Err: fmt.Errorf("failed to create %s: %w", dir, err)})
		}
		return results
	}

	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		result := c.downloadLayer(ctx, groups, alias, dir)
		if result.Err != nil {
			c.logger.Warn("layer download failed", zap.String("alias", alias), zap.Error(result.Err))
		} else {
			c.logger.Info("layer saved", zap.String("alias", alias), zap.String("path", result.Path))
		}
		results = append(results, result)
	}
	return results
}

func (c *Client) downloadLayer(ctx context.Context, groups []aptcore.GroupRecord, alias, dir string) LayerResult {
	result := LayerResult{Alias: alias}

	group, err := aptcore.Resolve(groups, alias)
	if err != nil {
		result.Err = err
		return result
	}
	result.Group = &group

	if group.Link == nil {
		result.Err = &aptcore.SourceError{
			Source: aptcore.SourceMitre,
			Input:  alias,
			Err:    fmt.Errorf("%w: group %s has no external reference", aptcore.ErrMalformedSource, group.Name),
		}
		return result
	}

	path := filepath.Join(dir, group.Link.LayerFileName())
	if _, err := c.Download(ctx, group.Link.LayerURL(), path); err != nil {
		result.Err = &aptcore.SourceError{Source: aptcore.SourceMitre, Input: alias, Err: err}
		return result
	}
	result.Path = path
	return result
}
