package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"aptintel/internal/aptcore"
	"aptintel/internal/config"
)

var errActionRequired = errors.New("one of the arguments -g/--groups -k/--keywords -u/--update is required")

// actionFlags are the root flags that select or modify a one-shot run.
// Running with none of them set opens the interactive menu.
var actionFlags = []string{"groups", "keywords", "mitre", "tracker", "no-mitre", "no-tracker", "update", "dedupe"}

type rootOptions struct {
	configPath string
	verbose    bool

	groups    string
	keywords  string
	mitre     bool
	tracker   bool
	noMitre   bool
	noTracker bool
	update    bool
	dedupe    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "aptintel",
		Short: "Search APT groups in MITRE ATT&CK and the APT tracker spreadsheet",
		Long: `aptintel looks up threat actor groups in two public sources: the MITRE
ATT&CK enterprise bundle and the community "APT Groups and Operations"
spreadsheet. Matches are written to .xlsx reports; per-group ATT&CK
Navigator layers can be downloaded by alias.

Run without arguments to open the interactive menu.

Examples:
  aptintel -g "APT16, FIN7"
  aptintel -k "financial, China"
  aptintel -k financial --no-tracker
  aptintel -u`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log.Level, opts.verbose)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	flags := cmd.Flags()
	flags.StringVarP(&opts.groups, "groups", "g", "", `APT group aliases whose TTP layers to download (example: -g "APT16, FIN7")`)
	flags.StringVarP(&opts.keywords, "keywords", "k", "", `Keywords to search both sources for (example: -k "financial, China")`)
	flags.BoolVarP(&opts.mitre, "mitre", "m", true, "Search the MITRE bundle with -k/--keywords")
	flags.BoolVarP(&opts.tracker, "tracker", "t", true, "Search the APT tracker spreadsheet with -k/--keywords")
	flags.BoolVar(&opts.noMitre, "no-mitre", false, "Do not search the MITRE bundle")
	flags.BoolVar(&opts.noTracker, "no-tracker", false, "Do not search the APT tracker spreadsheet")
	flags.BoolVarP(&opts.update, "update", "u", false, "Download fresh copies of both sources")
	flags.BoolVar(&opts.dedupe, "dedupe", false, "Drop repeated rows when a group matches several keywords")
	cmd.MarkFlagsMutuallyExclusive("groups", "keywords")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newQueryCmd(opts))
	return cmd
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Encoding = "console"
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func interactive(cmd *cobra.Command) bool {
	for _, name := range actionFlags {
		if cmd.Flags().Changed(name) {
			return false
		}
	}
	return true
}

func runRoot(cmd *cobra.Command, opts *rootOptions) error {
	menuMode := interactive(cmd)
	if !menuMode && opts.groups == "" && opts.keywords == "" && !opts.update {
		return errActionRequired
	}

	a, err := newApp(opts.cfg, opts.logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	a.ensureSources(ctx, opts.update)

	if menuMode {
		return a.runMenu(ctx, cmd.InOrStdin())
	}

	searchOpts := aptcore.SearchOptions{Dedupe: opts.dedupe}
	switch {
	case opts.keywords != "":
		keywords := aptcore.ParseList(opts.keywords)
		if opts.mitre && !opts.noMitre {
			a.searchMitre(ctx, keywords, searchOpts)
		}
		if opts.tracker && !opts.noTracker {
			a.searchTracker(ctx, keywords, searchOpts)
		}
	case opts.groups != "":
		a.downloadLayers(ctx, aptcore.ParseList(opts.groups))
	}
	a.println("Done!")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
