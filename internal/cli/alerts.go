package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var alertsNotify bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts",
	Long: `Evaluate alert conditions against the current lists and display any
triggered alerts: an oversized inbox, items waiting too long in the inbox,
overdue calendar items and delegated items due for a follow-up.

With --notify the alerts are also sent to the configured Slack webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}

		fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
		for _, alert := range alerts {
			fmt.Fprintf(out, "  [%s] %s\n", strings.ToUpper(string(alert.Severity)), alert.Message)
			fmt.Fprintf(out, "         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		if alertsNotify {
			if Notifier == nil {
				return fmt.Errorf("notifications are not configured (set notifications.enabled and notifications.slack.webhook_url)")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := Notifier.Notify(ctx, alerts); err != nil {
				return fmt.Errorf("sending notification: %w", err)
			}
			fmt.Fprintln(out, "Notification sent.")
		}
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Send the alerts to Slack")
	rootCmd.AddCommand(alertsCmd)
}
