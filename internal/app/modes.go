package app

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"platform-mcp/pkg/logging"
)

// runServeMode serves MCP until the client closes its end of the pipe or
// the process is asked to stop.
//
// Signal Handling:
//   - SIGINT (Ctrl+C): Triggers graceful shutdown
//   - SIGTERM: Triggers graceful shutdown (common when run by an MCP host)
func runServeMode(ctx context.Context, services *Services, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status := services.Manager.Status()
	if status.Authenticated {
		logging.Info("Serve", "Using stored credentials for %s", status.BaseURL)
	} else {
		logging.Info("Serve", "No valid credentials for %s, the first tool call will start a browser login", status.BaseURL)
	}

	err := services.Server.Serve(ctx, in, out)

	logging.Info("Serve", "MCP server stopped")
	return err
}
