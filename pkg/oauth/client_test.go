package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestEndpointsForBaseURL(t *testing.T) {
	endpoints := EndpointsForBaseURL("https://platform.example.com/")

	if endpoints.AuthorizeURL != "https://platform.example.com/authorize" {
		t.Errorf("AuthorizeURL = %q", endpoints.AuthorizeURL)
	}
	if endpoints.TokenURL != "https://platform.example.com/token" {
		t.Errorf("TokenURL = %q", endpoints.TokenURL)
	}
	if endpoints.RevokeURL != "https://platform.example.com/revoke" {
		t.Errorf("RevokeURL = %q", endpoints.RevokeURL)
	}
}

func TestNewClient(t *testing.T) {
	t.Run("creates client with defaults", func(t *testing.T) {
		c := NewClient("https://platform.example.com", "client-1")
		if c.httpClient == nil {
			t.Error("expected httpClient to be set")
		}
		if c.logger == nil {
			t.Error("expected logger to be set")
		}
		if c.ClientID() != "client-1" {
			t.Errorf("ClientID() = %q", c.ClientID())
		}
	})

	t.Run("applies options", func(t *testing.T) {
		customHTTP := &http.Client{Timeout: 10 * time.Second}
		endpoints := Endpoints{TokenURL: "http://localhost/tok"}

		c := NewClient("https://platform.example.com", "client-1",
			WithHTTPClient(customHTTP),
			WithEndpoints(endpoints),
		)

		if c.httpClient != customHTTP {
			t.Error("expected custom httpClient to be set")
		}
		if c.Endpoints().TokenURL != "http://localhost/tok" {
			t.Errorf("expected endpoint override, got %q", c.Endpoints().TokenURL)
		}
	})
}

func TestAuthorizationURL(t *testing.T) {
	c := NewClient("https://platform.example.com", "client-1")
	pkce := GeneratePKCE()

	raw := c.AuthorizationURL("http://localhost:8765/callback", "state-123", "read write", pkce)

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid URL: %v", err)
	}
	if u.Scheme+"://"+u.Host+u.Path != "https://platform.example.com/authorize" {
		t.Errorf("unexpected endpoint: %s", raw)
	}

	q := u.Query()
	expected := map[string]string{
		"client_id":             "client-1",
		"redirect_uri":          "http://localhost:8765/callback",
		"response_type":         "code",
		"scope":                 "read write",
		"state":                 "state-123",
		"code_challenge":        pkce.CodeChallenge,
		"code_challenge_method": "S256",
	}
	for key, want := range expected {
		if got := q.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}

	if q.Get("code_verifier") != "" {
		t.Error("authorization URL must never carry the code verifier")
	}
}

func TestExchangeCode(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var received map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-1",
			"scope":         "read",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "client-1", WithClock(func() time.Time { return now }))

	token, err := c.ExchangeCode(context.Background(), "the-code", "http://localhost:8765/callback", "the-verifier")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if received["grant_type"] != "authorization_code" {
		t.Errorf("grant_type = %q", received["grant_type"])
	}
	if received["code_verifier"] != "the-verifier" {
		t.Errorf("code_verifier = %q", received["code_verifier"])
	}
	if received["code"] != "the-code" || received["client_id"] != "client-1" {
		t.Errorf("unexpected body: %v", received)
	}
	if _, ok := received["code_challenge"]; ok {
		t.Error("token request must not carry the challenge")
	}

	if token.AccessToken != "access-1" || token.RefreshToken != "refresh-1" || token.Scope != "read" {
		t.Errorf("unexpected token: %+v", token)
	}
	if !token.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", token.ExpiresAt, now.Add(time.Hour))
	}
}

func TestRefreshToken(t *testing.T) {
	t.Run("sends refresh grant", func(t *testing.T) {
		var received map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&received)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "access-2",
				"expires_in":    60,
				"refresh_token": "refresh-2",
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, "client-1")
		token, err := c.RefreshToken(context.Background(), "refresh-1")
		if err != nil {
			t.Fatalf("RefreshToken() error = %v", err)
		}

		if received["grant_type"] != "refresh_token" || received["refresh_token"] != "refresh-1" {
			t.Errorf("unexpected body: %v", received)
		}
		if token.RefreshToken != "refresh-2" {
			t.Errorf("expected rotated refresh token, got %q", token.RefreshToken)
		}
	})

	t.Run("rejects empty refresh token without a request", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", "client-1")
		if _, err := c.RefreshToken(context.Background(), ""); err == nil {
			t.Error("expected error for empty refresh token")
		}
	})

	t.Run("returns TokenError on non-2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "client-1")
		_, err := c.RefreshToken(context.Background(), "refresh-1")

		var tokenErr *TokenError
		if !errors.As(err, &tokenErr) {
			t.Fatalf("expected *TokenError, got %T: %v", err, err)
		}
		if tokenErr.StatusCode != http.StatusBadRequest || tokenErr.Code != "invalid_grant" {
			t.Errorf("unexpected TokenError: %+v", tokenErr)
		}
		if tokenErr.HTTPStatus() != http.StatusBadRequest {
			t.Errorf("HTTPStatus() = %d", tokenErr.HTTPStatus())
		}
	})

	t.Run("rejects response without access token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "client-1")
		if _, err := c.RefreshToken(context.Background(), "refresh-1"); err == nil {
			t.Error("expected error for missing access_token")
		}
	})
}

func TestRevoke(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/revoke" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "client-1")
	if err := c.Revoke(context.Background(), "refresh-1"); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	if received["token"] != "refresh-1" || received["token_type_hint"] != "refresh_token" {
		t.Errorf("unexpected revoke body: %v", received)
	}
}

func TestToken_IsExpiredAt(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		token     *Token
		isExpired bool
	}{
		{"nil token", nil, true},
		{"no expiry", &Token{AccessToken: "a"}, true},
		{"expires in one hour", &Token{ExpiresAt: now.Add(time.Hour)}, false},
		{"expires in 301 seconds", &Token{ExpiresAt: now.Add(301 * time.Second)}, false},
		{"expires in 299 seconds", &Token{ExpiresAt: now.Add(299 * time.Second)}, true},
		{"expires in 60 seconds", &Token{ExpiresAt: now.Add(time.Minute)}, true},
		{"already expired", &Token{ExpiresAt: now.Add(-time.Minute)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.token.IsExpiredAt(now); got != tt.isExpired {
				t.Errorf("IsExpiredAt() = %v, want %v", got, tt.isExpired)
			}
		})
	}
}

func TestToken_ToOAuth2Token(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	token := &Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: expiry}

	converted := token.ToOAuth2Token()
	if converted.AccessToken != "a" || converted.RefreshToken != "r" || !converted.Expiry.Equal(expiry) {
		t.Errorf("unexpected conversion: %+v", converted)
	}
	if converted.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer default", converted.TokenType)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	if got := NormalizeBaseURL(" https://x.example.com// "); got != "https://x.example.com" {
		t.Errorf("NormalizeBaseURL() = %q", got)
	}
}
