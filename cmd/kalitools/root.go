package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"kalitools/internal/app"
)

type cliOptions struct {
	configPath string
	jsonOutput bool
	verbose    bool
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "kalitools",
		Short:         "Discover, inspect and install Kali security tool packages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			applyEnvFallbacks(cmd.Flags(), opts)
			logger, err := newLogger(opts.verbose)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "emit JSON instead of text")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newDiscoverCommand(opts),
		newListCommand(opts),
		newSearchCommand(opts),
		newInfoCommand(opts),
		newStatsCommand(opts),
		newInstallCommand(opts),
		newRemoveCommand(opts),
		newAddCommand(opts),
		newRmCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newCheckUpdatesCommand(opts),
		newWatchCommand(opts),
	)
	return root
}

// applyEnvFallbacks fills flags that were not set on the command line from
// their environment counterparts.
func applyEnvFallbacks(flags *pflag.FlagSet, opts *cliOptions) {
	if flag := flags.Lookup("config"); flag != nil && !flag.Changed {
		if path := os.Getenv("KALITOOLS_CONFIG"); path != "" {
			opts.configPath = path
		}
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

// withApp loads the configuration, wires the application and tears it down
// after fn returns.
func withApp(opts *cliOptions, fn func(a *app.App) error) error {
	cfg, err := app.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	a, err := app.New(cfg, opts.logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

// queryContext bounds read-only operations; mutations run on the command
// context alone so a slow apt-get is not cut short.
func queryContext(cmd *cobra.Command, a *app.App) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.Config.QueryTimeout)
}
