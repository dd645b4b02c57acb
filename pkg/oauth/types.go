package oauth

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenRefreshThreshold is the duration before token expiry when tokens are
// treated as expired and proactively refreshed. A request that starts just
// before expiry must not observe the token expiring mid-call.
const TokenRefreshThreshold = 5 * time.Minute

// DefaultTokenStorageDir is the default directory for storing credentials,
// relative to the user's home directory. This follows XDG conventions.
const DefaultTokenStorageDir = ".config/platform-mcp"

// DefaultCredentialsFile is the credential file name inside DefaultTokenStorageDir.
const DefaultCredentialsFile = "credentials.json"

// NormalizeBaseURL strips trailing slashes so that credentials issued for
// "https://x.example.com/" and "https://x.example.com" compare equal.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

// Token is the credential record issued by the platform's token endpoint.
type Token struct {
	// AccessToken is the bearer token used for authorization.
	AccessToken string `json:"access_token"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresIn is the token lifetime in seconds (from token response).
	ExpiresIn int `json:"expires_in,omitempty"`

	// ExpiresAt is the absolute expiry, second precision.
	ExpiresAt time.Time `json:"-"`

	// Scope is the granted scope(s), space-separated.
	Scope string `json:"scope,omitempty"`
}

// IsExpiredAt reports whether the token is expired, or will expire within
// TokenRefreshThreshold, at the given instant. A token without expiry is
// considered expired because the platform always issues one.
func (t *Token) IsExpiredAt(now time.Time) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return true
	}
	return t.ExpiresAt.Sub(now) < TokenRefreshThreshold
}

// SetExpiresAtFromExpiresIn calculates and sets ExpiresAt from ExpiresIn.
func (t *Token) SetExpiresAtFromExpiresIn(now time.Time) {
	if t.ExpiresIn > 0 {
		t.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).Truncate(time.Second)
	}
}

// Scopes returns the scope as a slice of individual scopes.
func (t *Token) Scopes() []string {
	if t.Scope == "" {
		return nil
	}
	return strings.Fields(t.Scope)
}

// ToOAuth2Token converts the Token to an oauth2.Token for compatibility with golang.org/x/oauth2.
func (t *Token) ToOAuth2Token() *oauth2.Token {
	tokenType := t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    tokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) challenge.
type PKCEChallenge struct {
	// CodeVerifier is the high-entropy secret kept in process memory.
	// It is sent only to the token endpoint, never to the browser.
	CodeVerifier string

	// CodeChallenge is the SHA256 hash of the verifier (base64url-encoded, no padding).
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}
