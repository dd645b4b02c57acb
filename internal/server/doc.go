// Package server exposes the platform to AI assistants over the Model
// Context Protocol.
//
// The server speaks MCP over stdio (github.com/mark3labs/mcp-go) and
// registers:
//
//   - platform_request: an authenticated call to the platform REST API
//   - auth_status, auth_login, auth_logout: credential management
//   - auth://status: the credential state as a JSON resource
//
// Tool handlers never see raw transport errors. Failures are classified by
// internal/apierror and returned as MCP tool errors with the user message,
// the suggestion and, for rate limits, the retry-after hint.
//
// Because stdout carries protocol frames, all logging goes to stderr.
package server
