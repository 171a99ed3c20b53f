package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kalitools/internal/app"
	"kalitools/internal/domain"
)

// watch tails catalog changes until interrupted. External edits to the
// catalog file are picked up through the file watcher and reported the same
// way as in-process merges.
func newWatchCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow catalog changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				ctx := cmd.Context()
				watcher := app.NewCatalogWatcher(a.Store, a.Hub, opts.logger)
				go func() {
					if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
						opts.logger.Warn(fmt.Sprintf("catalog watcher stopped: %v", err))
					}
				}()

				events := a.Hub.Subscribe(ctx, domain.KindCatalogMerged)
				for {
					select {
					case <-ctx.Done():
						return nil
					case ev, ok := <-events:
						if !ok {
							return nil
						}
						if opts.jsonOutput {
							if err := writeJSON(map[string]any{
								"kind":  ev.Kind,
								"tools": ev.Count,
								"at":    ev.At,
							}); err != nil {
								return err
							}
							continue
						}
						fmt.Printf("catalog changed: %d tools\n", ev.Count)
					}
				}
			})
		},
	}
}
