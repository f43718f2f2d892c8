package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	ssmcp "github.com/mhalvorsen/skillsync/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the skillsync MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the skillsync MCP server on stdio",
	Long: `Start the skillsync MCP server on stdio transport.

The server exposes the update workflow as MCP tools that AI assistants can
call: process_update, approve_update, reject_update, list_queue,
get_queue_item, archive_stats.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Workflow == nil || Queue == nil || Archiver == nil {
			return fmt.Errorf("workflow not initialized")
		}

		srv := ssmcp.NewServer(Workflow, Queue, Archiver, appVersion)

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
