package main

import (
	"github.com/spf13/cobra"

	"kalitools/internal/app"
)

func newDiscoverCommand(opts *cliOptions) *cobra.Command {
	var discoverOpts app.DiscoverOptions

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scrape the tool index and refresh the local catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				report, err := a.Discovery.Run(cmd.Context(), discoverOpts)
				if err != nil {
					return err
				}
				if err := printReport(report, opts.jsonOutput); err != nil {
					return err
				}
				if len(report.Failures) > 0 && report.ToolsParsed == 0 {
					return exitSilent(1)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&discoverOpts.Prune, "prune", false, "drop scraped entries no longer present upstream")
	cmd.Flags().BoolVar(&discoverOpts.RefreshLinks, "refresh-links", false, "ignore the cached link list and refetch the index")
	cmd.Flags().BoolVar(&discoverOpts.SkipMetaScan, "skip-meta-scan", false, "skip the local meta-package scan")
	return cmd
}
