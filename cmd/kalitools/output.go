package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"kalitools/internal/domain"
)

const resolutionForDisplay = time.Millisecond

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printStatuses(statuses []domain.ToolStatus, jsonOutput bool) error {
	if jsonOutput {
		rows := make([]map[string]any, 0, len(statuses))
		for _, st := range statuses {
			rows = append(rows, map[string]any{
				"name":      st.Tool.Name,
				"category":  st.Tool.Category,
				"installed": st.Installed,
				"source":    st.Tool.Source,
			})
		}
		return writeJSON(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tINSTALLED\tSOURCE")
	for _, st := range statuses {
		mark := ""
		if st.Installed {
			mark = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Tool.Name, st.Tool.Category, mark, st.Tool.Source)
	}
	return w.Flush()
}

func printReport(report *domain.DiscoveryReport, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(report)
	}
	fmt.Printf("discovered %d tool pages (%d links discarded), parsed %d, %d from meta-packages in %s\n",
		report.LinksFound, report.LinksDiscarded, report.ToolsParsed, report.MetaAdded,
		report.Duration().Round(resolutionForDisplay))
	for _, failure := range report.Failures {
		fmt.Printf("  failed %s [%s]: %s\n", failure.Path, failure.Code, failure.Err)
	}
	return nil
}

func printResult(result domain.OperationResult, jsonOutput bool) error {
	if jsonOutput {
		payload := map[string]any{
			"id":       result.ID,
			"package":  result.Package,
			"action":   result.Action,
			"outcome":  result.Outcome,
			"exitCode": result.ExitCode,
		}
		if result.Classification != "" {
			payload["classification"] = result.Classification
		}
		if result.Err != nil {
			payload["error"] = result.Err.Error()
		}
		return writeJSON(payload)
	}
	switch result.Outcome {
	case domain.OutcomeSucceeded:
		fmt.Printf("%s %s: ok (%s)\n", result.Action, result.Package, result.Duration.Round(resolutionForDisplay))
	case domain.OutcomeSkipped:
		fmt.Printf("%s %s: skipped (%v)\n", result.Action, result.Package, result.Err)
	default:
		fmt.Printf("%s %s: failed [%s] exit=%d\n", result.Action, result.Package, result.Classification, result.ExitCode)
		if result.Err != nil {
			fmt.Printf("  %v\n", result.Err)
		}
	}
	return nil
}

func printSummary(summary domain.BulkSummary, jsonOutput bool) error {
	if jsonOutput {
		rows := make([]map[string]any, 0, len(summary.Results))
		for _, r := range summary.Results {
			row := map[string]any{
				"package": r.Package,
				"outcome": r.Outcome,
			}
			if r.Err != nil {
				row["error"] = r.Err.Error()
			}
			rows = append(rows, row)
		}
		return writeJSON(map[string]any{
			"succeeded": summary.Succeeded,
			"failed":    summary.Failed,
			"skipped":   summary.Skipped,
			"results":   rows,
		})
	}
	for _, r := range summary.Results {
		if err := printResult(r, false); err != nil {
			return err
		}
	}
	fmt.Printf("%d succeeded, %d failed, %d skipped\n", summary.Succeeded, summary.Failed, summary.Skipped)
	return nil
}

func printInfo(st domain.ToolStatus, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{
			"tool":      st.Tool,
			"installed": st.Installed,
		})
	}
	state := "not installed"
	if st.Installed {
		state = "installed"
	}
	fmt.Printf("%s (%s, %s)\n", st.Tool.Name, st.Tool.Category, state)
	if st.Tool.Description != "" {
		fmt.Printf("  %s\n", st.Tool.Description)
	}
	if st.Tool.Homepage != "" {
		fmt.Printf("  homepage: %s\n", st.Tool.Homepage)
	}
	if len(st.Tool.Subpackages) > 0 {
		fmt.Printf("  subpackages: %v\n", st.Tool.Subpackages)
	}
	if len(st.Tool.Dependencies) > 0 {
		fmt.Printf("  depends: %v\n", st.Tool.Dependencies)
	}
	fmt.Printf("  source: %s\n", st.Tool.Source)
	return nil
}

func printStats(stats domain.CatalogStats, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(stats)
	}
	fmt.Printf("%d tools, %d installed\n", stats.Total, stats.Installed)
	names := make([]string, 0, len(stats.Categories))
	for name := range stats.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tTOTAL\tINSTALLED")
	for _, name := range names {
		cat := stats.Categories[name]
		fmt.Fprintf(w, "%s\t%d\t%d\n", name, cat.Total, cat.Installed)
	}
	return w.Flush()
}
