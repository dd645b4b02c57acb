package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// maxTokenResponseBytes bounds how much of a token response is read.
	maxTokenResponseBytes = 1 << 20
)

// Endpoints holds the OAuth endpoints of the platform.
type Endpoints struct {
	AuthorizeURL string
	TokenURL     string
	RevokeURL    string
}

// EndpointsForBaseURL derives the fixed /authorize, /token and /revoke
// endpoints from the platform base URL.
func EndpointsForBaseURL(baseURL string) Endpoints {
	base := NormalizeBaseURL(baseURL)
	return Endpoints{
		AuthorizeURL: base + "/authorize",
		TokenURL:     base + "/token",
		RevokeURL:    base + "/revoke",
	}
}

// Client handles OAuth 2.0 protocol operations against the platform:
// authorization URL construction, code exchange, refresh and revocation.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoints  Endpoints
	clientID   string
	now        func() time.Time
}

// ClientOption configures the OAuth client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithEndpoints overrides the endpoints derived from the base URL.
func WithEndpoints(endpoints Endpoints) ClientOption {
	return func(c *Client) {
		c.endpoints = endpoints
	}
}

// WithClock sets the time source used to compute absolute expiry.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new OAuth client for the platform at baseURL.
func NewClient(baseURL, clientID string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     slog.Default(),
		endpoints:  EndpointsForBaseURL(baseURL),
		clientID:   clientID,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ClientID returns the OAuth client identifier.
func (c *Client) ClientID() string {
	return c.clientID
}

// Endpoints returns the endpoints this client talks to.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// AuthorizationURL constructs the authorization URL for a PKCE attempt.
// The URL carries client_id, redirect_uri, response_type=code, scope,
// state, code_challenge and code_challenge_method=S256.
func (c *Client) AuthorizationURL(redirectURI, state, scope string, pkce *PKCEChallenge) string {
	cfg := &oauth2.Config{
		ClientID:    c.clientID,
		RedirectURL: redirectURI,
		Scopes:      strings.Fields(scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.endpoints.AuthorizeURL,
			TokenURL: c.endpoints.TokenURL,
		},
	}

	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(pkce.CodeVerifier))
}

// ExchangeCode exchanges an authorization code for tokens.
// The original code verifier is sent, never the challenge.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*Token, error) {
	body := map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     c.clientID,
		"code":          code,
		"redirect_uri":  redirectURI,
		"code_verifier": codeVerifier,
	}

	return c.doTokenRequest(ctx, body)
}

// RefreshToken obtains a new token set using a refresh token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token available")
	}

	body := map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     c.clientID,
		"refresh_token": refreshToken,
	}

	return c.doTokenRequest(ctx, body)
}

// Revoke asks the platform to revoke a refresh token.
// Callers treat failures as best-effort.
func (c *Client) Revoke(ctx context.Context, refreshToken string) error {
	body := map[string]string{
		"token":           refreshToken,
		"token_type_hint": "refresh_token",
	}

	resp, err := c.postJSON(ctx, c.endpoints.RevokeURL, body)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxTokenResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TokenError{StatusCode: resp.StatusCode, Header: resp.Header}
	}
	return nil
}

// doTokenRequest performs a token endpoint request.
func (c *Client) doTokenRequest(ctx context.Context, body map[string]string) (*Token, error) {
	resp, err := c.postJSON(ctx, c.endpoints.TokenURL, body)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tokenErr := &TokenError{StatusCode: resp.StatusCode, Header: resp.Header}
		// The body is usually {"error": ..., "error_description": ...}; ignore it otherwise.
		_ = json.Unmarshal(data, tokenErr)
		c.logger.Debug("Token request failed",
			"grant_type", body["grant_type"],
			"status", resp.StatusCode,
			"error", tokenErr.Code)
		return nil, tokenErr
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("token response did not contain an access_token")
	}

	token.SetExpiresAtFromExpiresIn(c.now())

	return &token, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body map[string]string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}
