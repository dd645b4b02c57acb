package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"platform-mcp/internal/apierror"
	"platform-mcp/internal/oauth"
	"platform-mcp/internal/retry"
	"platform-mcp/pkg/logging"
)

const (
	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "platform-mcp"

	// RequestIDHeader carries the per-request correlation ID.
	RequestIDHeader = "X-Request-ID"
)

// TokenSource supplies access tokens. *oauth.Manager implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	IsAuthenticated() bool
	Logout(ctx context.Context) error
	Status() oauth.Status
}

// Config configures a Client.
type Config struct {
	// APIBaseURL is prefixed to every request path.
	APIBaseURL string

	// Tokens supplies bearer tokens.
	Tokens TokenSource

	// Executor retries transient failures. Defaults to retry.DefaultPolicy.
	Executor *retry.Executor

	// HTTPClient defaults to a client with DefaultTimeout.
	HTTPClient *http.Client

	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
}

// Request describes one API call.
type Request struct {
	Method string

	// Path is relative to the API base URL.
	Path string

	Query url.Values

	// Body is sent as JSON. []byte and json.RawMessage are sent as is.
	Body any

	// Header holds extra request headers.
	Header http.Header

	// Retry overrides the executor's policy for this request.
	Retry *retry.Policy
}

// Client is the authenticated entry point to the platform API.
//
// Every request carries a bearer token from the TokenSource. Transient
// failures are retried by the executor. When the platform still answers
// 401, the token is refreshed once and the request replayed once; a
// second 401 is returned to the caller. All errors returned by Do are
// *apierror.Error.
type Client struct {
	baseURL    string
	tokens     TokenSource
	executor   *retry.Executor
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a platform API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIBaseURL == "" {
		return nil, errors.New("platform client requires an API base URL")
	}
	if _, err := url.Parse(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if cfg.Tokens == nil {
		return nil, errors.New("platform client requires a token source")
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		tokens:     cfg.Tokens,
		executor:   cfg.Executor,
		httpClient: cfg.HTTPClient,
		userAgent:  cfg.UserAgent,
	}
	if c.executor == nil {
		c.executor = retry.NewExecutor(retry.DefaultPolicy)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	return c, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and decodes a JSON response body into out, which may be nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return apierror.New(apierror.CategoryValidation, err)
	}

	requestID := uuid.NewString()

	data, err := c.send(ctx, req, body, requestID, "")
	if err != nil && isUnauthorized(err) {
		logging.Debug("Platform", "%s %s rejected the access token, refreshing (request %s)", req.Method, req.Path, requestID)

		token, refreshErr := c.tokens.Refresh(ctx)
		if refreshErr != nil {
			return apierror.Classify(refreshErr)
		}
		// The replay carries the refreshed token itself. The store may not
		// hold it if persisting the new record failed.
		data, err = c.send(ctx, req, body, requestID, token)
	}
	if err != nil {
		classified := apierror.Classify(err)
		logging.Debug("Platform", "%s %s failed (%s, request %s): %v", req.Method, req.Path, classified.Category, requestID, err)
		return classified
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apierror.New(apierror.CategoryUnknown, fmt.Errorf("decoding %s %s response: %w", req.Method, req.Path, err))
	}
	return nil
}

// Get is Do with GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post is Do with POST and a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put is Do with PUT and a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete is Do with DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// AccessToken returns a valid access token, refreshing or logging in when
// needed.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", apierror.Classify(err)
	}
	return token, nil
}

// IsAuthenticated reports whether unexpired credentials are stored.
func (c *Client) IsAuthenticated() bool {
	return c.tokens.IsAuthenticated()
}

// Logout revokes and clears the stored credentials.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Logout(ctx)
}

// Status describes the stored credentials.
func (c *Client) Status() oauth.Status {
	return c.tokens.Status()
}

// send performs req under the retry executor and returns the response body
// of the first 2xx answer. A non-empty token pins the bearer for every
// attempt; otherwise each attempt asks the token source.
func (c *Client) send(ctx context.Context, req Request, body []byte, requestID, token string) ([]byte, error) {
	return retry.Do(ctx, c.executor, func(ctx context.Context) ([]byte, error) {
		return c.attempt(ctx, req, body, requestID, token)
	}, req.Retry)
}

func (c *Client) attempt(ctx context.Context, req Request, body []byte, requestID, token string) ([]byte, error) {
	if token == "" {
		var err error
		token, err = c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
	}

	httpReq, err := c.newHTTPRequest(ctx, req, body, requestID)
	if err != nil {
		return nil, err
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(httpReq)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	logging.Debug("Platform", "%s %s -> %d in %v (request %s)", req.Method, req.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond), requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       data,
		}
	}
	return data, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request, body []byte, requestID string) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		return data, nil
	}
}

// isUnauthorized reports whether the platform answered 401, as opposed to
// an authentication failure raised before any request was sent.
func isUnauthorized(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized
}
