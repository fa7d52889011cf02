package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/zeit/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client start and stop activities and pull reports.
Configure it with:

  {
    "mcpServers": {
      "zeit": { "command": "zeit", "args": ["mcp"] }
    }
  }

Reports are filtered for the identity in caller.email / caller.team_code.

Available tools: zeit_list_projects, zeit_project_view, zeit_start_activity,
zeit_stop_activity, zeit_finish_project, zeit_project_report,
zeit_range_report, zeit_period_report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	reports, err := newReportService(s)
	if err != nil {
		return err
	}

	srv := mcp.NewServer(s, newLedger(s), reports, accessPolicy(), currentCaller(), buildVersion)

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()
	return srv.ServeStdio(ctx)
}
