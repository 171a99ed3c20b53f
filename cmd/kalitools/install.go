package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kalitools/internal/app"
	"kalitools/internal/domain"
)

func newInstallCommand(opts *cliOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "install <name>...",
		Short: "Install packages through apt-get",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app.App) error {
				return runOperations(cmd, a, opts, domain.ActionInstall, args, all)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also install every sub-package of each tool")
	return cmd
}

func newRemoveCommand(opts *cliOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "remove <name>...",
		Short: "Remove packages through apt-get",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app.App) error {
				return runOperations(cmd, a, opts, domain.ActionUninstall, args, all)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also remove every sub-package of each tool")
	return cmd
}

// runOperations executes the action for each named package. Targets may be
// catalog tools or bare package names; --all requires a catalog entry since
// sub-packages come from it.
func runOperations(cmd *cobra.Command, a *app.App, opts *cliOptions, action domain.OperationAction, names []string, all bool) error {
	failed := false
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		tool, inCatalog := a.Store.Get(name)

		if all {
			if !inCatalog {
				return exitWithMessage(1, fmt.Sprintf("%s: not in the catalog, --all needs its sub-package list", name))
			}
			var summary domain.BulkSummary
			var err error
			if action == domain.ActionInstall {
				summary, err = a.Orchestrator.InstallAll(cmd.Context(), tool)
			} else {
				summary, err = a.Orchestrator.UninstallAll(cmd.Context(), tool)
			}
			if err != nil {
				return err
			}
			if err := printSummary(summary, opts.jsonOutput); err != nil {
				return err
			}
			failed = failed || summary.Failed > 0
			continue
		}

		var result domain.OperationResult
		if action == domain.ActionInstall {
			result = a.Orchestrator.Install(cmd.Context(), name)
		} else {
			result = a.Orchestrator.Uninstall(cmd.Context(), name)
		}
		if err := printResult(result, opts.jsonOutput); err != nil {
			return err
		}
		failed = failed || result.Failed()
	}
	if failed {
		return exitSilent(1)
	}
	return nil
}

func newCheckUpdatesCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-updates",
		Short: "List catalog packages with a newer version available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				ctx, cancel := queryContext(cmd, a)
				defer cancel()
				names, err := a.CheckUpdates(ctx)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(map[string]any{"upgradable": names})
				}
				if len(names) == 0 {
					fmt.Println("all catalog packages are up to date")
					return nil
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return nil
			})
		},
	}
}
