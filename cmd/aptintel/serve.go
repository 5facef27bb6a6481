package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aptintel/internal/aptcore"
	"aptintel/internal/api"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve keyword, alias and full-text searches over HTTP",
		Long: `Loads both source snapshots once and answers:

  GET /api/search?keywords=a,b&source=mitre|tracker&dedupe=true
  GET /api/groups/{alias}
  GET /api/query?query=...&size=10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				opts.cfg.Server.ListenAddr = listenAddr
			}

			a, err := newApp(opts.cfg, opts.logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			a.ensureSources(ctx, false)

			groups, err := aptcore.LoadGroups(opts.cfg.MitreSnapshot())
			if err != nil {
				return err
			}

			index, err := aptcore.NewGroupIndex(groups)
			if err != nil {
				return err
			}
			defer index.Close()

			var tracker aptcore.Workbook
			wb, err := aptcore.OpenTracker(opts.cfg.TrackerSnapshot())
			if err != nil {
				opts.logger.Warn("tracker searches disabled", zap.Error(err))
			} else {
				defer wb.Close()
				tracker = wb
			}

			server := api.NewServer(groups, tracker, index, opts.logger)
			return server.ListenAndServe(ctx, opts.cfg.Server.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides server.listen_addr)")
	return cmd
}
