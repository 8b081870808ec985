package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "gtd",
	Short: "GTD Brain - capture tasks and sort them with a guided decision tree",
	Long: `GTD Brain (gtd) captures tasks into an inbox and sorts each one with a
short question wizard: does it need action, is it urgent, must you do it
yourself, is it a single step, can it be done now, does it have a date.

Every answer path ends in one disposition: leave it, delegate it, do it
today, put it on the calendar, or turn it into a project with a first step.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gtd %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
