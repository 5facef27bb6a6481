package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"aptintel/internal/aptcore"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "query [terms...]",
		Short: "Rank MITRE groups by full-text relevance",
		Long: `Runs a full-text match query over group names, aliases and descriptions
and prints the best hits by score. Unlike -k/--keywords this tokenizes the
query and writes no report.

Example:
  aptintel query "financial retail" --size 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg, opts.logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()
			a.ensureSources(cmd.Context(), false)

			groups, err := aptcore.LoadGroups(opts.cfg.MitreSnapshot())
			if err != nil {
				return err
			}
			index, err := aptcore.NewGroupIndex(groups)
			if err != nil {
				return err
			}
			defer index.Close()

			query := strings.Join(args, " ")
			hits, err := index.Search(query, size)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				a.printf("[%s]: APT Groups not found.", aptcore.SourceMitre)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCORE\tNAME\tALIASES")
			for _, hit := range hits {
				fmt.Fprintf(tw, "%.3f\t%s\t%s\n", hit.Score, hit.Group.Name, strings.Join(hit.Group.Aliases, ", "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&size, "size", "n", 10, "Maximum number of hits")
	return cmd
}
