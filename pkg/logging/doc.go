// Package logging provides structured logging for platform-mcp built on the
// standard slog package.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("OAuth", "Starting authorization flow for %s", baseURL)
//	logging.Debug("Retry", "Waiting %s before attempt %d", delay, attempt)
//	logging.Error("Platform", err, "Request failed")
//
// Log output goes to stderr by default. When the binary runs as an MCP stdio
// server, stdout is reserved for protocol frames.
//
// # Subsystems
//
//   - **Config**: Configuration loading and validation
//   - **TokenStore**: Credential file persistence
//   - **OAuth**: Authorization flow and token lifecycle
//   - **Retry**: Resilient request executor
//   - **Platform**: API client facade
//   - **MCP**: MCP server and tool handlers
//
// # Audit Logging
//
// Security-sensitive operations are recorded with Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "state_mismatch",
//	    Outcome: "denied",
//	    Target:  baseURL,
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix for easy filtering.
// Token values are never logged; use TruncateToken for diagnostics.
package logging
