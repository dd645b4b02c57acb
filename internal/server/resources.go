package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"platform-mcp/internal/oauth"
	"platform-mcp/pkg/logging"
)

// AuthStatusResourceURI is the URI for the auth status MCP resource.
const AuthStatusResourceURI = "auth://status"

// AuthStatus is the JSON view of the stored credentials returned by the
// auth_status tool and the auth://status resource. Token values are never
// included.
type AuthStatus struct {
	Authenticated    bool   `json:"authenticated"`
	HasCredentials   bool   `json:"has_credentials"`
	HasRefreshToken  bool   `json:"has_refresh_token"`
	ExpiresAt        string `json:"expires_at,omitempty"`
	ExpiresInSeconds int64  `json:"expires_in_seconds,omitempty"`
	Scope            string `json:"scope,omitempty"`
	BaseURL          string `json:"base_url"`
	CredentialsPath  string `json:"credentials_path,omitempty"`
	FlowState        string `json:"flow_state"`
	LoginTool        string `json:"login_tool,omitempty"`
}

func newAuthStatus(status oauth.Status) AuthStatus {
	view := AuthStatus{
		Authenticated:   status.Authenticated,
		HasCredentials:  status.HasCredentials,
		HasRefreshToken: status.HasRefreshToken,
		Scope:           status.Scope,
		BaseURL:         status.BaseURL,
		CredentialsPath: status.CredentialsPath,
		FlowState:       status.FlowState.String(),
	}
	if !status.ExpiresAt.IsZero() {
		view.ExpiresAt = status.ExpiresAt.UTC().Format(time.RFC3339)
		view.ExpiresInSeconds = int64(status.ExpiresIn / time.Second)
	}
	if !status.Authenticated && !status.HasRefreshToken {
		view.LoginTool = ToolAuthLogin
	}
	return view
}

// registerResources registers the auth://status resource.
func (s *Server) registerResources() {
	resource := mcp.NewResource(
		AuthStatusResourceURI,
		"Platform authentication status",
		mcp.WithResourceDescription("Whether platform credentials are stored, when they expire, and which tool signs in."),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(resource, s.handleAuthStatusResource)
}

// handleAuthStatusResource handles requests for the auth://status resource.
func (s *Server) handleAuthStatusResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(newAuthStatus(s.api.Status()))
	if err != nil {
		return nil, err
	}

	logging.Debug("MCPServer", "Returning auth status")

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      AuthStatusResourceURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
