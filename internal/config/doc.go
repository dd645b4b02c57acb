// Package config provides configuration management for platform-mcp.
//
// Configuration is resolved in layers, each overriding the previous one:
//
//  1. built-in defaults (GetDefaultConfig)
//  2. config.yaml in the configuration directory, ~/.config/platform-mcp by
//     default or the directory given with --config-path
//  3. PLATFORM_MCP_* environment variables (ApplyEnv)
//  4. command line flags, applied by the caller
//
// A missing config.yaml is not an error. Validate should be called once all
// layers are applied.
//
// Example config.yaml:
//
//	baseUrl: https://app.platform.example.com
//	clientId: platform-mcp
//	scope: read write
//	callbackPort: 8765
//	callbackTimeout: 5m
//	httpTimeout: 30s
//	logLevel: info
//	logFile: /var/tmp/platform-mcp.log
//	retry:
//	  maxRetries: 3
//	  baseDelay: 1s
//	  maxDelay: 30s
package config
