package app

import (
	"fmt"
	"net/http"

	"platform-mcp/internal/config"
	"platform-mcp/internal/oauth"
	"platform-mcp/internal/platform"
	"platform-mcp/internal/retry"
	"platform-mcp/internal/server"
	"platform-mcp/pkg/logging"
	pkgoauth "platform-mcp/pkg/oauth"
)

// Services holds all initialized components. Each is built once and shared:
// the store is the single writer of the credential file, and the manager
// is the single owner of the token lifecycle.
type Services struct {
	Config *config.Config

	Store    *oauth.TokenStore
	OAuth    *pkgoauth.Client
	Flow     *oauth.Flow
	Manager  *oauth.Manager
	Executor *retry.Executor
	Platform *platform.Client
	Server   *server.Server
}

// InitializeServices creates all components in dependency order:
//
//  1. Credential store, bound to the configured base URL
//  2. OAuth endpoint client
//  3. Interactive PKCE flow
//  4. Token lifecycle manager
//  5. Retry executor from the configured policy
//  6. Platform API client
//  7. MCP server
func InitializeServices(cfg *Config) (*Services, error) {
	platformCfg := cfg.PlatformConfig

	store, err := oauth.NewTokenStore(oauth.TokenStoreConfig{
		Path:    platformCfg.CredentialsPath,
		BaseURL: platformCfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	userAgent := userAgent(cfg.Version)
	httpClient := &http.Client{
		Timeout:   platformCfg.HTTPTimeout,
		Transport: userAgentTransport{userAgent: userAgent, next: http.DefaultTransport},
	}

	oauthClient := pkgoauth.NewClient(platformCfg.BaseURL, platformCfg.ClientID,
		pkgoauth.WithHTTPClient(httpClient),
		pkgoauth.WithLogger(logging.Logger()),
	)

	browser := cfg.Browser
	if browser == nil && platformCfg.NoBrowser {
		browser = oauth.NoBrowser{}
	}

	flow, err := oauth.NewFlow(oauth.FlowConfig{
		Client:          oauthClient,
		Store:           store,
		Scope:           platformCfg.Scope,
		CallbackPort:    platformCfg.CallbackPort,
		CallbackTimeout: platformCfg.CallbackTimeout,
		Browser:         browser,
		Output:          cfg.FlowOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization flow: %w", err)
	}

	manager, err := oauth.NewManager(oauth.ManagerConfig{
		Store:  store,
		Client: oauthClient,
		Flow:   flow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	executor := retry.NewExecutor(RetryPolicy(platformCfg.Retry))

	platformClient, err := platform.NewClient(platform.Config{
		APIBaseURL: platformCfg.ResolvedAPIBaseURL(),
		Tokens:     manager,
		Executor:   executor,
		HTTPClient: httpClient,
		UserAgent:  userAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create platform client: %w", err)
	}

	mcpServer, err := server.New(server.Config{
		API:     platformClient,
		Login:   manager.Login,
		Version: cfg.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}

	return &Services{
		Config:   platformCfg,
		Store:    store,
		OAuth:    oauthClient,
		Flow:     flow,
		Manager:  manager,
		Executor: executor,
		Platform: platformClient,
		Server:   mcpServer,
	}, nil
}

// RetryPolicy converts the retry configuration into an executor policy.
func RetryPolicy(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
	}
}

func userAgent(version string) string {
	if version == "" {
		return platform.DefaultUserAgent
	}
	return platform.DefaultUserAgent + "/" + version
}

// userAgentTransport stamps the User-Agent on the token and revocation
// requests pkg/oauth sends, which do not go through the platform client.
type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(clone)
}
