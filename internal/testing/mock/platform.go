package mock

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// AuthorizeBehavior controls how /authorize answers.
type AuthorizeBehavior int

const (
	// AuthorizeApprove redirects back with a code and the original state.
	AuthorizeApprove AuthorizeBehavior = iota
	// AuthorizeDeny redirects back with error=access_denied.
	AuthorizeDeny
	// AuthorizeWrongState redirects back with a code and a forged state.
	AuthorizeWrongState
	// AuthorizeIgnore never redirects, so the callback never arrives.
	AuthorizeIgnore
)

// PlatformConfig configures the mock platform.
type PlatformConfig struct {
	// ClientID is the expected OAuth client ID. Defaults to "test-client".
	ClientID string

	// TokenLifetime is the expires_in of issued tokens. Defaults to 1h.
	TokenLifetime time.Duration

	// Clock decides when issued tokens expire. Defaults to RealClock.
	Clock Clock
}

// TokenResponse is the token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// APIResponse is a scripted answer for an API request.
type APIResponse struct {
	Status int
	Header map[string]string
	Body   string
}

// RecordedRequest is an API request the platform received.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

type authCodeEntry struct {
	clientID      string
	redirectURI   string
	scope         string
	codeChallenge string
}

// Platform is an in-process fake of the remote platform: OAuth
// authorization server plus a bearer-protected REST API under /api/v1.
type Platform struct {
	config PlatformConfig
	clock  Clock
	server *httptest.Server

	mu                sync.Mutex
	authorizeBehavior AuthorizeBehavior
	authCodes         map[string]*authCodeEntry
	accessTokens      map[string]time.Time
	refreshTokens     map[string]string // refresh token -> scope
	tokenFailures     []APIResponse
	apiResponses      []APIResponse
	grantCounts       map[string]int
	revokeCount       int
	apiRequests       []RecordedRequest
	authorizeRequests []url.Values
}

// NewPlatform starts a mock platform on a random local port.
// Call Close when done.
func NewPlatform(config PlatformConfig) *Platform {
	if config.ClientID == "" {
		config.ClientID = "test-client"
	}
	if config.TokenLifetime == 0 {
		config.TokenLifetime = time.Hour
	}
	clock := config.Clock
	if clock == nil {
		clock = RealClock{}
	}

	p := &Platform{
		config:        config,
		clock:         clock,
		authCodes:     make(map[string]*authCodeEntry),
		accessTokens:  make(map[string]time.Time),
		refreshTokens: make(map[string]string),
		grantCounts:   make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", p.handleAuthorize)
	mux.HandleFunc("/token", p.handleToken)
	mux.HandleFunc("/revoke", p.handleRevoke)
	mux.HandleFunc("/api/v1/", p.handleAPI)

	p.server = httptest.NewServer(mux)
	return p
}

// Close shuts the platform down.
func (p *Platform) Close() {
	p.server.Close()
}

// URL returns the platform base URL.
func (p *Platform) URL() string {
	return p.server.URL
}

// APIBaseURL returns the base URL of the REST API.
func (p *Platform) APIBaseURL() string {
	return p.server.URL + "/api/v1"
}

// ClientID returns the client ID the platform expects.
func (p *Platform) ClientID() string {
	return p.config.ClientID
}

// SetAuthorizeBehavior changes how /authorize answers.
func (p *Platform) SetAuthorizeBehavior(b AuthorizeBehavior) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authorizeBehavior = b
}

// OpenBrowser plays the user's browser: it follows the authorization URL
// and the redirect back to the local callback in the background.
// It has the signature of a browser opener.
func (p *Platform) OpenBrowser(authURL string) error {
	go func() {
		resp, err := http.Get(authURL)
		if err != nil {
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	return nil
}

// IssueToken mints a token pair without the browser flow, for seeding
// credential stores in tests.
func (p *Platform) IssueToken(scope string) *TokenResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issueLocked(scope)
}

// ExpireAccessTokens invalidates all access tokens issued so far, so the
// API answers 401 until a new one is obtained.
func (p *Platform) ExpireAccessTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessTokens = make(map[string]time.Time)
}

// RevokeRefreshTokens invalidates all refresh tokens issued so far.
func (p *Platform) RevokeRefreshTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshTokens = make(map[string]string)
}

// FailTokenRequests makes the next token endpoint calls return the given
// responses in order.
func (p *Platform) FailTokenRequests(responses ...APIResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenFailures = append(p.tokenFailures, responses...)
}

// EnqueueAPIResponses makes the next authorized API calls return the given
// responses in order. Afterwards the API echoes the request.
func (p *Platform) EnqueueAPIResponses(responses ...APIResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apiResponses = append(p.apiResponses, responses...)
}

// GrantCount returns how many token requests with the grant type were
// received, successful or not.
func (p *Platform) GrantCount(grantType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.grantCounts[grantType]
}

// RevokeCount returns how many revoke requests were received.
func (p *Platform) RevokeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revokeCount
}

// APIRequests returns the API requests received so far, including
// unauthorized ones.
func (p *Platform) APIRequests() []RecordedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RecordedRequest, len(p.apiRequests))
	copy(out, p.apiRequests)
	return out
}

// AuthorizeRequests returns the query parameters of each /authorize call.
func (p *Platform) AuthorizeRequests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]url.Values, len(p.authorizeRequests))
	copy(out, p.authorizeRequests)
	return out
}

func (p *Platform) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p.mu.Lock()
	p.authorizeRequests = append(p.authorizeRequests, q)
	behavior := p.authorizeBehavior
	p.mu.Unlock()

	if q.Get("client_id") != p.config.ClientID {
		http.Error(w, "unknown client", http.StatusBadRequest)
		return
	}
	if q.Get("response_type") != "code" || q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		http.Error(w, "PKCE with S256 is required", http.StatusBadRequest)
		return
	}

	redirectURI, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || redirectURI.Host == "" {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}

	params := url.Values{}
	switch behavior {
	case AuthorizeIgnore:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("waiting for user"))
		return
	case AuthorizeDeny:
		params.Set("error", "access_denied")
		params.Set("error_description", "The user denied the request")
		params.Set("state", q.Get("state"))
	default:
		code := generateOpaqueToken()
		p.mu.Lock()
		p.authCodes[code] = &authCodeEntry{
			clientID:      q.Get("client_id"),
			redirectURI:   q.Get("redirect_uri"),
			scope:         q.Get("scope"),
			codeChallenge: q.Get("code_challenge"),
		}
		p.mu.Unlock()

		params.Set("code", code)
		params.Set("state", q.Get("state"))
		if behavior == AuthorizeWrongState {
			params.Set("state", "forged-"+generateOpaqueToken())
		}
	}

	redirectURI.RawQuery = params.Encode()
	http.Redirect(w, r, redirectURI.String(), http.StatusFound)
}

func (p *Platform) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "body must be JSON")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	grantType := body["grant_type"]
	p.grantCounts[grantType]++

	if len(p.tokenFailures) > 0 {
		failure := p.tokenFailures[0]
		p.tokenFailures = p.tokenFailures[1:]
		writeScripted(w, failure)
		return
	}

	if body["client_id"] != p.config.ClientID {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "unknown client")
		return
	}

	switch grantType {
	case "authorization_code":
		entry, ok := p.authCodes[body["code"]]
		if !ok {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "authorization code is invalid")
			return
		}
		delete(p.authCodes, body["code"])

		if entry.redirectURI != body["redirect_uri"] {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "redirect_uri mismatch")
			return
		}
		if s256(body["code_verifier"]) != entry.codeChallenge {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
			return
		}
		writeJSON(w, http.StatusOK, p.issueLocked(entry.scope))

	case "refresh_token":
		scope, ok := p.refreshTokens[body["refresh_token"]]
		if !ok {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "refresh token is invalid")
			return
		}
		// Refresh tokens are single use.
		delete(p.refreshTokens, body["refresh_token"])
		writeJSON(w, http.StatusOK, p.issueLocked(scope))

	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type",
			fmt.Sprintf("grant_type %s not supported", grantType))
	}
}

func (p *Platform) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.revokeCount++
	delete(p.refreshTokens, body["token"])
	w.WriteHeader(http.StatusOK)
}

func (p *Platform) handleAPI(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	p.mu.Lock()
	p.apiRequests = append(p.apiRequests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   string(data),
	})

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	expiry, ok := p.accessTokens[token]
	if !ok || !p.clock.Now().Before(expiry) {
		p.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		return
	}

	if len(p.apiResponses) > 0 {
		scripted := p.apiResponses[0]
		p.apiResponses = p.apiResponses[1:]
		p.mu.Unlock()
		writeScripted(w, scripted)
		return
	}
	p.mu.Unlock()

	echo := map[string]interface{}{
		"method": r.Method,
		"path":   strings.TrimPrefix(r.URL.Path, "/api/v1"),
		"query":  r.URL.RawQuery,
	}
	if len(data) > 0 {
		var payload interface{}
		if json.Unmarshal(data, &payload) == nil {
			echo["body"] = payload
		}
	}
	writeJSON(w, http.StatusOK, echo)
}

// issueLocked mints a new token pair. Must be called with p.mu held.
func (p *Platform) issueLocked(scope string) *TokenResponse {
	access := generateOpaqueToken()
	refresh := generateOpaqueToken()

	p.accessTokens[access] = p.clock.Now().Add(p.config.TokenLifetime)
	p.refreshTokens[refresh] = scope

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(p.config.TokenLifetime.Seconds()),
		Scope:        scope,
	}
}

func writeScripted(w http.ResponseWriter, resp APIResponse) {
	for k, v := range resp.Header {
		w.Header().Set(k, v)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp.Body))
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func s256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// generateOpaqueToken generates a random opaque token string.
func generateOpaqueToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Errorf("crypto/rand failed: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
