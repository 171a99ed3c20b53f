package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kalitools/internal/app"
	"kalitools/internal/domain"
)

func newAddCommand(opts *cliOptions) *cobra.Command {
	var tool domain.Tool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom entry to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(opts, func(a *app.App) error {
				tool.Name = args[0]
				if err := a.Store.Add(tool); err != nil {
					return err
				}
				a.Hub.Emit(domain.ChangeEvent{Kind: domain.KindToolAdded, Package: tool.Name})
				if !opts.jsonOutput {
					fmt.Printf("added %s\n", tool.Name)
					return nil
				}
				added, _ := a.Store.Get(tool.Name)
				return writeJSON(added)
			})
		},
	}

	cmd.Flags().StringVar(&tool.Category, "category", "", "tool category")
	cmd.Flags().StringVar(&tool.Description, "description", "", "short description")
	cmd.Flags().StringVar(&tool.Homepage, "homepage", "", "upstream homepage")
	cmd.Flags().StringSliceVar(&tool.Subpackages, "subpackage", nil, "sub-package name (repeatable)")
	return cmd
}

func newRmCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove an entry from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(opts, func(a *app.App) error {
				if err := a.Store.Remove(args[0]); err != nil {
					return err
				}
				a.Hub.Emit(domain.ChangeEvent{Kind: domain.KindToolRemoved, Package: args[0]})
				if !opts.jsonOutput {
					fmt.Printf("removed %s\n", args[0])
				}
				return nil
			})
		},
	}
}

func newExportCommand(opts *cliOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the catalog to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(opts, func(a *app.App) error {
				fmtParsed, err := app.ParseExportFormat(format)
				if err != nil {
					return err
				}
				if len(args) == 0 {
					return a.Export(os.Stdout, fmtParsed)
				}
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				if err := a.Export(f, fmtParsed); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "export format (json or yaml)")
	return cmd
}

func newImportCommand(opts *cliOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge an exported catalog into the local one",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(opts, func(a *app.App) error {
				fmtParsed, err := app.ParseExportFormat(format)
				if err != nil {
					return err
				}
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				count, err := a.Import(f, fmtParsed)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(map[string]any{"imported": count})
				}
				fmt.Printf("imported %d tools\n", count)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "import format (json or yaml)")
	return cmd
}
