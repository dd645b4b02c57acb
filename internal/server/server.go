package server

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"platform-mcp/internal/oauth"
	"platform-mcp/internal/platform"
	"platform-mcp/pkg/logging"
	pkgoauth "platform-mcp/pkg/oauth"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "platform-mcp"

// API is the part of *platform.Client the tools use.
type API interface {
	Do(ctx context.Context, req platform.Request, out any) error
	Status() oauth.Status
	Logout(ctx context.Context) error
}

// LoginFunc runs the interactive login. (*oauth.Manager).Login fits.
type LoginFunc func(ctx context.Context) (*pkgoauth.Token, error)

// Config configures the MCP server.
type Config struct {
	API     API
	Login   LoginFunc
	Version string
}

// Server exposes the platform API and the authentication state as MCP tools
// and resources over stdio.
type Server struct {
	api       API
	login     LoginFunc
	mcpServer *server.MCPServer
}

// New creates the MCP server and registers its tools and resources.
func New(cfg Config) (*Server, error) {
	if cfg.API == nil {
		return nil, errors.New("server requires a platform API client")
	}
	if cfg.Login == nil {
		return nil, errors.New("server requires a login function")
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	s := &Server{
		api:       cfg.API,
		login:     cfg.Login,
		mcpServer: mcpServer,
	}
	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Serve speaks MCP over in and out until ctx is cancelled or in is closed.
// Nothing else may write to out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(logging.Logger().Handler(), slog.LevelError))

	logging.Info("MCPServer", "Serving %s over stdio", ServerName)
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
