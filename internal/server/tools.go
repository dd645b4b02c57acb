package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"platform-mcp/internal/apierror"
	"platform-mcp/internal/platform"
	"platform-mcp/pkg/logging"
)

// Tool names.
const (
	ToolPlatformRequest = "platform_request"
	ToolAuthStatus      = "auth_status"
	ToolAuthLogin       = "auth_login"
	ToolAuthLogout      = "auth_logout"
)

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	requestTool := mcp.NewTool(ToolPlatformRequest,
		mcp.WithDescription("Call the platform REST API. Authentication, retries of transient failures and token refresh are handled automatically."),
		mcp.WithString("method",
			mcp.Description("HTTP method (default: GET)"),
			mcp.Enum(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("API path relative to the API base URL, e.g. /projects"),
		),
		mcp.WithObject("query",
			mcp.Description("Query parameters as a JSON object"),
		),
		mcp.WithObject("body",
			mcp.Description("JSON request body"),
		),
	)
	s.mcpServer.AddTool(requestTool, s.handlePlatformRequest)

	statusTool := mcp.NewTool(ToolAuthStatus,
		mcp.WithDescription("Show whether platform credentials are stored and when they expire"),
	)
	s.mcpServer.AddTool(statusTool, s.handleAuthStatus)

	loginTool := mcp.NewTool(ToolAuthLogin,
		mcp.WithDescription("Sign in to the platform. Opens the user's browser and waits for the authorization to complete."),
	)
	s.mcpServer.AddTool(loginTool, s.handleAuthLogin)

	logoutTool := mcp.NewTool(ToolAuthLogout,
		mcp.WithDescription("Revoke and delete the stored platform credentials"),
	)
	s.mcpServer.AddTool(logoutTool, s.handleAuthLogout)
}

// handlePlatformRequest handles the platform_request MCP tool.
func (s *Server) handlePlatformRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil || strings.TrimSpace(path) == "" {
		return mcp.NewToolResultError("path argument is required"), nil
	}
	method := strings.ToUpper(request.GetString("method", http.MethodGet))

	args := request.GetArguments()
	query, err := queryValues(args["query"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := platform.Request{
		Method: method,
		Path:   path,
		Query:  query,
	}
	if body, ok := args["body"]; ok && body != nil {
		req.Body = body
	}

	var response json.RawMessage
	if err := s.api.Do(ctx, req, &response); err != nil {
		logging.Debug("MCPServer", "%s %s failed: %v", method, path, err)
		return toolError(err), nil
	}

	if len(response) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s %s succeeded with an empty response.", method, path)), nil
	}
	return mcp.NewToolResultText(indentJSON(response)), nil
}

// handleAuthStatus handles the auth_status MCP tool.
func (s *Server) handleAuthStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(newAuthStatus(s.api.Status()), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleAuthLogin handles the auth_login MCP tool.
func (s *Server) handleAuthLogin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, err := s.login(ctx)
	if err != nil {
		return toolError(err), nil
	}

	msg := "Signed in to the platform."
	if !token.ExpiresAt.IsZero() {
		msg = fmt.Sprintf("Signed in to the platform. The session is valid until %s.", token.ExpiresAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	return mcp.NewToolResultText(msg), nil
}

// handleAuthLogout handles the auth_logout MCP tool.
func (s *Server) handleAuthLogout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.api.Logout(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to remove credentials: %v", err)), nil
	}
	return mcp.NewToolResultText("Signed out. Stored credentials were removed."), nil
}

// toolError renders a failure as a tool error carrying the category, user
// message, retry hint and suggestion.
func toolError(err error) *mcp.CallToolResult {
	classified := apierror.Classify(err)

	var b strings.Builder
	b.WriteString(classified.Describe())
	fmt.Fprintf(&b, "\n\nCategory: %s", classified.Category)
	if classified.StatusCode != 0 {
		fmt.Fprintf(&b, "\nHTTP status: %d", classified.StatusCode)
	}
	if classified.Message != "" {
		fmt.Fprintf(&b, "\nDetails: %s", classified.Message)
	}
	return mcp.NewToolResultError(b.String())
}

// queryValues converts the query argument object into url.Values. Arrays
// become repeated parameters.
func queryValues(raw any) (url.Values, error) {
	if raw == nil {
		return nil, nil
	}
	object, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("query must be an object, got %T", raw)
	}

	keys := make([]string, 0, len(object))
	for k := range object {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, key := range keys {
		switch v := object[key].(type) {
		case nil:
		case []any:
			for _, item := range v {
				values.Add(key, queryValue(item))
			}
		default:
			values.Add(key, queryValue(v))
		}
	}
	return values, nil
}

// queryValue formats one scalar. JSON numbers arrive as float64 and are
// written without an exponent.
func queryValue(v any) string {
	if n, ok := v.(float64); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func indentJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}
