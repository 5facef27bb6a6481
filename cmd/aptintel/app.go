package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"aptintel/internal/aptcore"
	"aptintel/internal/config"
	"aptintel/internal/feed"
	"aptintel/internal/fetch"
	"aptintel/internal/report"
)

// app carries the dependencies of every action. Actions print one status
// line per outcome and keep going after per-item failures.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	out       io.Writer
	client    *fetch.Client
	publisher *feed.Publisher
}

func newApp(cfg *config.Config, logger *zap.Logger, out io.Writer) (*app, error) {
	timeout, err := cfg.HTTPTimeout()
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:    cfg,
		logger: logger,
		out:    out,
		client: fetch.NewClient(timeout, logger),
	}
	if cfg.Kafka.Broker != "" {
		a.publisher = feed.NewPublisher(cfg.Kafka.Broker, cfg.Kafka.Topic, logger)
		logger.Debug("publishing enabled", zap.String("broker", cfg.Kafka.Broker), zap.String("topic", cfg.Kafka.Topic))
	}
	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close publisher", zap.Error(err))
		}
	}
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *app) mitreSource() fetch.Source {
	return fetch.Source{Name: aptcore.SourceMitre, URL: a.cfg.Sources.MitreURL, Path: a.cfg.MitreSnapshot()}
}

func (a *app) trackerSource() fetch.Source {
	return fetch.Source{Name: aptcore.SourceTracker, URL: a.cfg.Sources.TrackerURL, Path: a.cfg.TrackerSnapshot()}
}

// ensureSources downloads missing snapshots, or all of them when force is set.
func (a *app) ensureSources(ctx context.Context, force bool) {
	if err := a.client.EnsureSources(ctx, []fetch.Source{a.trackerSource(), a.mitreSource()}, force); err != nil {
		a.println(err)
	}
}

func (a *app) update(ctx context.Context, src fetch.Source) {
	a.printf("[%s]: Downloading '%s'...", src.Name, filepath.Base(src.Path))
	if err := a.client.Update(ctx, src); err != nil {
		a.println(err)
		return
	}
	a.printf("[%s]: Updated.", src.Name)
}

func (a *app) searchMitre(ctx context.Context, keywords []string, opts aptcore.SearchOptions) {
	a.printf("[%s]: Searching by keyword(s) in the Description field...", aptcore.SourceMitre)
	groups, err := aptcore.LoadGroups(a.cfg.MitreSnapshot())
	if err != nil {
		a.println(err)
		return
	}
	result := aptcore.SearchGroups(groups, keywords, opts)
	a.logger.Debug("mitre search finished", zap.Strings("keywords", keywords), zap.Int("rows", len(result.Rows)))
	written := a.writeReport(result.Source, report.MitreFileName, func(path string) error {
		return report.Write(result, path, report.MitreLayout)
	})
	if written && a.publisher != nil {
		a.publish(feed.Publish(ctx, a.publisher, result))
	}
}

func (a *app) searchTracker(ctx context.Context, keywords []string, opts aptcore.SearchOptions) {
	a.printf("[%s]: Searching by keyword(s) in the Targets and Comment fields...", aptcore.SourceTracker)
	wb, err := aptcore.OpenTracker(a.cfg.TrackerSnapshot())
	if err != nil {
		a.println(err)
		return
	}
	defer wb.Close()

	result, err := aptcore.SearchTracker(wb, keywords, opts)
	if err != nil {
		// per-sheet failures; the remaining sheets were still searched
		a.println(err)
	}
	written := a.writeReport(result.Source, report.TrackerFileName, func(path string) error {
		return report.Write(result, path, report.TrackerLayout)
	})
	if written && a.publisher != nil {
		a.publish(feed.Publish(ctx, a.publisher, result))
	}
}

// writeReport runs write against the report path and prints the outcome.
// It reports whether a file was written.
func (a *app) writeReport(source, name string, write func(path string) error) bool {
	path := filepath.Join(a.cfg.ReportDir, name)
	err := os.MkdirAll(a.cfg.ReportDir, 0755)
	if err == nil {
		err = write(path)
	}
	switch {
	case errors.Is(err, aptcore.ErrNoMatches):
		a.printf("[%s]: APT Groups not found.", source)
		return false
	case err != nil:
		a.println(&aptcore.SourceError{Source: source, Input: path, Err: err})
		return false
	}
	a.logger.Info("report written", zap.String("source", source), zap.String("path", path))
	a.printf("[%s]: Found!", source)
	return true
}

// publish logs a publishing failure. It never fails the search.
func (a *app) publish(err error) {
	if err != nil {
		a.logger.Warn("failed to publish results", zap.Error(err))
	}
}

func (a *app) downloadLayers(ctx context.Context, aliases []string) {
	groups, err := aptcore.LoadGroups(a.cfg.MitreSnapshot())
	if err != nil {
		a.println(err)
		return
	}
	for _, result := range a.client.DownloadLayers(ctx, groups, aliases, a.cfg.ArtifactsDir) {
		a.printf("[%s]: Searching APT group '%s'...", aptcore.SourceMitre, result.Alias)
		switch {
		case errors.Is(result.Err, aptcore.ErrGroupNotFound):
			a.printf("[%s]: Group '%s' not found", aptcore.SourceMitre, result.Alias)
		case result.Err != nil:
			a.println(result.Err)
		default:
			a.printf("[%s]: Found!", aptcore.SourceMitre)
		}
	}
}
