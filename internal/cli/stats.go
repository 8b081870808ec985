package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show completion counts, inbox progress and a motivation message",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := servicesReady(); err != nil {
			return err
		}
		stats, err := TaskMgr.Stats()
		if err != nil {
			return err
		}
		progress, err := TaskMgr.Progress()
		if err != nil {
			return err
		}
		motivation, err := TaskMgr.Motivation()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "  %-20s %d (%d key)\n", "Done today:", stats.TodayDone, stats.TodayKeyDone)
		fmt.Fprintf(out, "  %-20s %d (%d key)\n", "Done this week:", stats.WeekDone, stats.WeekKeyDone)
		fmt.Fprintf(out, "  %-20s %d%%\n", "Inbox sorted:", progress)
		fmt.Fprintf(out, "\n  %s\n", motivation)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
