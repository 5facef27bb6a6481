package main

import (
	"context"
	"io"

	"go.uber.org/zap"

	"aptintel/internal/aptcore"
	"aptintel/internal/menu"
)

func (a *app) runMenu(ctx context.Context, in io.Reader) error {
	choice, err := menu.Run(in, a.out)
	if err != nil {
		return err
	}
	a.logger.Debug("menu choice", zap.String("option", choice.Option.Label()), zap.Strings("input", choice.Input))

	if a.runChoice(ctx, choice) {
		a.println("Done!")
	} else {
		a.println("Bye!")
	}
	return nil
}

// runChoice performs the picked action and reports false for Exit.
func (a *app) runChoice(ctx context.Context, choice menu.Choice) bool {
	switch choice.Option {
	case menu.OptionMitreSearch:
		a.searchMitre(ctx, choice.Input, aptcore.SearchOptions{})
	case menu.OptionTrackerSearch:
		a.searchTracker(ctx, choice.Input, aptcore.SearchOptions{})
	case menu.OptionLayers:
		a.downloadLayers(ctx, choice.Input)
	case menu.OptionUpdateTracker:
		a.update(ctx, a.trackerSource())
	case menu.OptionUpdateMitre:
		a.update(ctx, a.mitreSource())
	default:
		return false
	}
	return true
}
