package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/gtd-brain/internal/observability"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display capture and sorting metrics",
	Long: `Display aggregated metrics derived from the event log: tasks captured,
sorted (by disposition), completed, and how many sort sessions were
abandoned.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log may be disabled)")
		}

		window := strings.TrimSpace(metricsSince)
		if window == "" {
			window = "7d"
		}
		since, err := observability.ParseSince(window, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "Metrics (since %s)\n\n", since.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks captured:", metrics.TasksCreated)
		fmt.Fprintf(out, "  %-24s %d\n", "First steps created:", metrics.FirstStepsCreated)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks sorted:", metrics.TasksSorted)
		fmt.Fprintf(out, "  %-24s %d\n", "Sorted as urgent:", metrics.UrgentSorted)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks completed:", metrics.TasksCompleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Key tasks completed:", metrics.KeyTasksCompleted)
		fmt.Fprintf(out, "  %-24s %d of %d\n", "Sort sessions abandoned:", metrics.SortSessionsAbandoned, metrics.SortSessionsStarted)

		if len(metrics.SortedByDisposition) > 0 {
			fmt.Fprintln(out, "\n  Sorted by disposition:")
			kinds := make([]string, 0, len(metrics.SortedByDisposition))
			for kind := range metrics.SortedByDisposition {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Fprintf(out, "    %-20s %d\n", kind+":", metrics.SortedByDisposition[kind])
			}
		}

		if metrics.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
