package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	gtdmcp "github.com/valter-silva-au/gtd-brain/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the gtd MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gtd MCP server on stdio",
	Long: `Start the gtd MCP server on stdio transport.

The server exposes task capture and sorting as MCP tools: create_task,
list_tasks, get_task, complete_task, start_sort, answer_sort, back_sort,
get_stats, get_metrics and get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := servicesReady(); err != nil {
			return err
		}

		srv := gtdmcp.NewServer(gtdmcp.Deps{
			Tasks:       TaskMgr,
			Sorter:      Sorter,
			MetricsCalc: MetricsCalc,
			AlertEngine: AlertEngine,
			Location:    Location,
			Logger:      Logger,
		}, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
