package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"platform-mcp/pkg/logging"
	pkgoauth "platform-mcp/pkg/oauth"
)

// DefaultAttemptTimeout bounds a shared refresh or login attempt. It
// outlasts the callback wait of the interactive flow.
const DefaultAttemptTimeout = 2 * DefaultCallbackTimeout

// TokenClient is the subset of the OAuth client the manager needs.
type TokenClient interface {
	RefreshToken(ctx context.Context, refreshToken string) (*pkgoauth.Token, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// ManagerConfig configures the token lifecycle manager.
type ManagerConfig struct {
	Store  *TokenStore
	Client TokenClient
	Flow   Authenticator

	// Clock defaults to time.Now.
	Clock func() time.Time

	// AttemptTimeout defaults to DefaultAttemptTimeout.
	AttemptTimeout time.Duration
}

// Manager decides whether to reuse, refresh or re-acquire the access token.
//
// A failed refresh is never retried: it clears the stored credentials and
// escalates to the interactive flow, since repeated refresh failures almost
// always mean the grant was revoked. Concurrent callers needing a refresh
// or login share a single attempt.
type Manager struct {
	store  *TokenStore
	client TokenClient
	flow   Authenticator
	now    func() time.Time
	group  singleflight.Group

	attemptTimeout time.Duration
}

// Status describes the stored credentials for display.
type Status struct {
	Authenticated   bool
	HasCredentials  bool
	HasRefreshToken bool
	ExpiresAt       time.Time
	ExpiresIn       time.Duration
	Scope           string
	BaseURL         string
	CredentialsPath string
	FlowState       FlowState
}

// NewManager creates a token lifecycle manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("manager requires a token store")
	}
	if cfg.Client == nil {
		return nil, errors.New("manager requires an OAuth client")
	}
	if cfg.Flow == nil {
		return nil, errors.New("manager requires an authorization flow")
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	attemptTimeout := cfg.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}

	return &Manager{
		store:          cfg.Store,
		client:         cfg.Client,
		flow:           cfg.Flow,
		now:            now,
		attemptTimeout: attemptTimeout,
	}, nil
}

// AccessToken returns a valid access token. A stored token outside the
// refresh threshold is returned without any network call; otherwise the
// token is refreshed, and failing that the interactive flow is run.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	if token := m.store.Load(); token != nil && !token.IsExpiredAt(m.now()) {
		return token.AccessToken, nil
	}

	token, err := m.shared(ctx, "access", func(ctx context.Context) (*pkgoauth.Token, error) {
		return m.acquire(ctx, false)
	})
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// Refresh forces a refresh-token exchange regardless of the stored expiry.
// It is used after the platform rejected the current access token.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	token, err := m.shared(ctx, "refresh", func(ctx context.Context) (*pkgoauth.Token, error) {
		return m.acquire(ctx, true)
	})
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// Login runs the interactive flow even if usable credentials exist.
func (m *Manager) Login(ctx context.Context) (*pkgoauth.Token, error) {
	return m.shared(ctx, "login", m.authenticate)
}

// IsAuthenticated reports whether a stored, unexpired token exists.
func (m *Manager) IsAuthenticated() bool {
	return !m.store.IsAccessTokenExpired()
}

// Logout revokes the refresh token (best effort) and clears the stored
// credentials.
func (m *Manager) Logout(ctx context.Context) error {
	if token := m.store.Load(); token != nil && token.RefreshToken != "" {
		if err := m.client.Revoke(ctx, token.RefreshToken); err != nil {
			logging.Debug("OAuth", "Token revocation failed, clearing local credentials anyway: %v", err)
		}
	}

	if err := m.store.Clear(); err != nil {
		return err
	}

	logging.Audit(logging.AuditEvent{
		Action:  "logout",
		Outcome: "success",
		Target:  m.store.BaseURL(),
	})
	return nil
}

// Status returns the current credential status.
func (m *Manager) Status() Status {
	status := Status{
		BaseURL:         m.store.BaseURL(),
		CredentialsPath: m.store.Path(),
		FlowState:       m.flow.State(),
	}

	token := m.store.Load()
	if token == nil {
		return status
	}

	now := m.now()
	status.HasCredentials = true
	status.HasRefreshToken = token.RefreshToken != ""
	status.ExpiresAt = token.ExpiresAt
	status.Scope = token.Scope
	status.Authenticated = !token.IsExpiredAt(now)
	if !token.ExpiresAt.IsZero() {
		status.ExpiresIn = token.ExpiresAt.Sub(now).Truncate(time.Second)
	}
	return status
}

// shared collapses concurrent calls with the same key into one. Callers
// whose context ends stop waiting. The shared attempt keeps the starting
// caller's values but not its cancellation, and is bounded by the attempt
// timeout instead.
func (m *Manager) shared(ctx context.Context, key string, fn func(context.Context) (*pkgoauth.Token, error)) (*pkgoauth.Token, error) {
	ch := m.group.DoChan(key, func() (interface{}, error) {
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.attemptTimeout)
		defer cancel()
		return fn(attemptCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*pkgoauth.Token), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// acquire loads, refreshes or re-authenticates. With force set, a stored
// token is refreshed even if it has not expired.
func (m *Manager) acquire(ctx context.Context, force bool) (*pkgoauth.Token, error) {
	token := m.store.Load()
	if token == nil {
		logging.Info("OAuth", "No stored credentials, starting interactive login")
		return m.authenticate(ctx)
	}

	if !force && !token.IsExpiredAt(m.now()) {
		return token, nil
	}

	refreshed, err := m.refresh(ctx, token)
	if err == nil {
		return refreshed, nil
	}

	// An interrupted exchange says nothing about the grant.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logging.Warn("OAuth", "Token refresh interrupted, keeping stored credentials: %v", err)
		return nil, err
	}

	logging.Warn("OAuth", "Token refresh failed, re-authentication required: %v", err)
	logging.Audit(logging.AuditEvent{
		Action:  "token_refresh",
		Outcome: "failure",
		Target:  m.store.BaseURL(),
		Error:   err.Error(),
	})

	if clearErr := m.store.Clear(); clearErr != nil {
		logging.Warn("OAuth", "Failed to clear credentials after refresh failure: %v", clearErr)
	}

	return m.authenticate(ctx)
}

// refresh exchanges the refresh token and stores the new record wholesale.
func (m *Manager) refresh(ctx context.Context, current *pkgoauth.Token) (*pkgoauth.Token, error) {
	if current.RefreshToken == "" {
		return nil, errors.New("no refresh token stored")
	}

	token, err := m.client.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh grant failed: %w", err)
	}

	// A server that does not rotate refresh tokens omits the field; the
	// old one stays valid.
	if token.RefreshToken == "" {
		token.RefreshToken = current.RefreshToken
	}

	if err := m.store.Save(token); err != nil {
		logging.Warn("OAuth", "Failed to persist refreshed credentials: %v", err)
	}

	logging.Info("OAuth", "Access token refreshed, expires at %s", token.ExpiresAt.Format(time.RFC3339))
	return token, nil
}

func (m *Manager) authenticate(ctx context.Context) (*pkgoauth.Token, error) {
	return m.flow.Authenticate(ctx)
}
