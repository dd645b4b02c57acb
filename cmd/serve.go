package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// serveCmd runs the MCP server on stdin and stdout.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the platform API as MCP tools over stdio",
	Long: `Starts the MCP server on stdin and stdout. Point your AI assistant's
MCP configuration at this command:

  {"command": "platform-mcp", "args": ["serve"]}

The server exposes these tools:
  platform_request   Call the platform API with automatic retries
  auth_status        Show the stored credential state
  auth_login         Run the browser login
  auth_logout        Revoke and delete the stored credentials

and the auth://status resource.

Logs go to stderr; stdout carries only MCP messages. The server stops
when stdin is closed or on SIGINT/SIGTERM.

Configuration:
  platform-mcp loads ~/.config/platform-mcp/config.yaml when present, then the
  PLATFORM_MCP_* environment variables, then the command line flags.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	// Logs must stay off stdout, which carries the protocol.
	cfg := newAppConfig(false)

	application, err := newApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
