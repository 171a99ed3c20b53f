package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"kalitools/internal/app"
	"kalitools/internal/domain"
)

func newListCommand(opts *cliOptions) *cobra.Command {
	var category string
	var installedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog tools with their installed state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				tools := a.Store.Sorted()
				if category != "" {
					tools = a.Store.FilterCategory(category)
					sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
				}

				ctx, cancel := queryContext(cmd, a)
				defer cancel()
				statuses, err := a.Statuses(ctx, tools)
				if err != nil {
					return err
				}
				if installedOnly {
					kept := statuses[:0]
					for _, st := range statuses {
						if st.Installed {
							kept = append(kept, st)
						}
					}
					statuses = kept
				}
				return printStatuses(statuses, opts.jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only tools in this category")
	cmd.Flags().BoolVar(&installedOnly, "installed", false, "only installed tools")
	return cmd
}

func newSearchCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog by name and description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app.App) error {
				tools := a.Store.Search(args[0])
				ctx, cancel := queryContext(cmd, a)
				defer cancel()
				statuses, err := a.Statuses(ctx, tools)
				if err != nil {
					return err
				}
				return printStatuses(statuses, opts.jsonOutput)
			})
		},
	}
}

func newInfoCommand(opts *cliOptions) *cobra.Command {
	var field string

	cmd := &cobra.Command{
		Use:   "info <name>",
		Short: "Show one tool's catalog entry and installed state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, func(a *app.App) error {
				ctx, cancel := queryContext(cmd, a)
				defer cancel()
				st, err := a.Info(ctx, args[0])
				if err != nil {
					if domain.CodeFrom(err) == domain.CodeNotFound {
						return exitWithMessage(1, fmt.Sprintf("%s: not in the catalog, run discover first", args[0]))
					}
					return err
				}
				if field != "" {
					fmt.Println(st.Tool.Field(field))
					return nil
				}
				return printInfo(st, opts.jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "print a single field (name, category, description, homepage, source)")
	return cmd
}

func newStatsCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				ctx, cancel := queryContext(cmd, a)
				defer cancel()
				stats, err := a.Stats(ctx)
				if err != nil {
					return err
				}
				return printStats(stats, opts.jsonOutput)
			})
		},
	}
}
