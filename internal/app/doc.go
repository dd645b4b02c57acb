// Package app provides application bootstrap and lifecycle management for
// platform-mcp.
//
// NewApplication resolves the configuration (defaults, config.yaml,
// PLATFORM_MCP_* environment variables, then command line overrides),
// configures logging and builds the component graph once:
//
//	TokenStore ─┬─> Flow ──> Manager ──> platform.Client ──> server.Server
//	oauth.Client ┘              ▲              ▲
//	                            │        retry.Executor
//	                        oauth.Client
//
// CLI commands use Services directly; `platform-mcp serve` calls Run, which
// serves MCP over stdio until the client disconnects or a SIGINT or SIGTERM
// arrives.
//
// Logs never go to stdout, which carries the MCP protocol: they are written
// to stderr, to the configured writer, or to a rotated file when logFile is
// set.
package app
