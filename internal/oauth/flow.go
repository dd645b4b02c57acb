package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"platform-mcp/pkg/logging"
	pkgoauth "platform-mcp/pkg/oauth"
)

// FlowState is the state of the interactive authorization attempt.
type FlowState int32

const (
	FlowIdle FlowState = iota
	FlowListenerStarted
	FlowBrowserLaunched
	FlowAwaitingCallback
	FlowCodeReceived
	FlowExchanging
	FlowAuthenticated
	FlowDenied
	FlowStateMismatch
	FlowTimeout
	FlowCancelled
	FlowExchangeFailed
	FlowListenerBindFailed
)

// String returns a human-readable representation of the flow state.
func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowListenerStarted:
		return "listener_started"
	case FlowBrowserLaunched:
		return "browser_launched"
	case FlowAwaitingCallback:
		return "awaiting_callback"
	case FlowCodeReceived:
		return "code_received"
	case FlowExchanging:
		return "exchanging"
	case FlowAuthenticated:
		return "authenticated"
	case FlowDenied:
		return "denied"
	case FlowStateMismatch:
		return "state_mismatch"
	case FlowTimeout:
		return "timeout"
	case FlowCancelled:
		return "cancelled"
	case FlowExchangeFailed:
		return "exchange_failed"
	case FlowListenerBindFailed:
		return "listener_bind_failed"
	default:
		return "unknown"
	}
}

// Authenticator runs an interactive login and returns the stored token.
type Authenticator interface {
	Authenticate(ctx context.Context) (*pkgoauth.Token, error)
	State() FlowState
}

// FlowConfig configures the PKCE authorization flow.
type FlowConfig struct {
	// Client talks to the platform's OAuth endpoints. Required.
	Client *pkgoauth.Client

	// Store receives the token on success. Required.
	Store *TokenStore

	// Scope is the space-separated scope to request.
	Scope string

	// CallbackPort defaults to DefaultCallbackPort.
	CallbackPort int

	// CallbackTimeout defaults to DefaultCallbackTimeout.
	CallbackTimeout time.Duration

	// Browser defaults to SystemBrowser.
	Browser BrowserOpener

	// Output receives the authorization URL. Defaults to os.Stderr since
	// stdout may carry the MCP protocol.
	Output io.Writer

	// OnAuthURL, if set, is called with the authorization URL before the
	// browser is launched.
	OnAuthURL func(authURL string)
}

// Flow drives the OAuth 2.0 Authorization Code flow with PKCE through a
// local callback listener. One attempt runs at a time.
type Flow struct {
	cfg     FlowConfig
	running atomic.Bool
	state   atomic.Int32
}

// NewFlow creates a new authorization flow.
func NewFlow(cfg FlowConfig) (*Flow, error) {
	if cfg.Client == nil {
		return nil, errors.New("flow requires an OAuth client")
	}
	if cfg.Store == nil {
		return nil, errors.New("flow requires a token store")
	}
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = DefaultCallbackTimeout
	}
	if cfg.Browser == nil {
		cfg.Browser = SystemBrowser{}
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	return &Flow{cfg: cfg}, nil
}

// State returns the state of the current or most recent attempt.
func (f *Flow) State() FlowState {
	return FlowState(f.state.Load())
}

func (f *Flow) setState(s FlowState) {
	f.state.Store(int32(s))
	logging.Debug("OAuth", "Authorization flow state: %s", s)
}

// fail records the terminal state and builds the matching error.
func (f *Flow) fail(state FlowState, kind error, detail string, cause error) error {
	f.setState(state)
	return newFlowError(state, kind, detail, cause)
}

// Authenticate runs one authorization attempt: start the listener, open the
// browser, wait for the callback, verify state, exchange the code and store
// the token. The listener is closed on every exit path.
func (f *Flow) Authenticate(ctx context.Context) (*pkgoauth.Token, error) {
	if !f.running.CompareAndSwap(false, true) {
		return nil, newFlowError(f.State(), ErrAuthInProgress, "", nil)
	}
	defer f.running.Store(false)

	f.setState(FlowIdle)

	pkce := pkgoauth.GeneratePKCE()
	state, err := pkgoauth.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to start authorization: %w", err)
	}

	server := NewCallbackServer(f.cfg.CallbackPort, state)
	redirectURI, err := server.Start()
	if err != nil {
		return nil, f.fail(FlowListenerBindFailed, ErrListenerBind, "", err)
	}
	defer server.Stop()
	f.setState(FlowListenerStarted)

	authURL := f.cfg.Client.AuthorizationURL(redirectURI, state, f.cfg.Scope, pkce)
	f.launchBrowser(authURL)
	f.setState(FlowBrowserLaunched)

	waitCtx, cancel := context.WithTimeout(ctx, f.cfg.CallbackTimeout)
	defer cancel()

	f.setState(FlowAwaitingCallback)

	var result *CallbackResult
	select {
	case result = <-server.Results():
	case err := <-server.Errors():
		return nil, f.fail(FlowCancelled, ErrFlowCancelled, "callback listener failed", err)
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, f.fail(FlowCancelled, ErrFlowCancelled, "", ctx.Err())
		}
		return nil, f.fail(FlowTimeout, ErrCallbackTimeout,
			fmt.Sprintf("no callback within %s", f.cfg.CallbackTimeout), nil)
	}

	// The authorization server's error takes precedence over state.
	if result.IsError() {
		logging.Warn("OAuth", "Authorization denied: %s %s", result.Error, result.ErrorDescription)
		detail := result.Error
		if result.ErrorDescription != "" {
			detail = result.Error + " - " + result.ErrorDescription
		}
		return nil, f.fail(FlowDenied, ErrDenied, detail, nil)
	}

	if !stateMatches(state, result.State) {
		logging.Audit(logging.AuditEvent{
			Action:  "state_mismatch",
			Outcome: "denied",
			Target:  f.cfg.Store.BaseURL(),
			Error:   fmt.Sprintf("expected state length %d, received length %d", len(state), len(result.State)),
		})
		return nil, f.fail(FlowStateMismatch, ErrStateMismatch, "", nil)
	}

	if result.Code == "" {
		return nil, f.fail(FlowDenied, ErrDenied, "callback carried no authorization code", nil)
	}
	f.setState(FlowCodeReceived)

	// The code is single-use; stop listening before the exchange.
	server.Stop()

	f.setState(FlowExchanging)
	token, err := f.cfg.Client.ExchangeCode(ctx, result.Code, redirectURI, pkce.CodeVerifier)
	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "login",
			Outcome: "failure",
			Target:  f.cfg.Store.BaseURL(),
			Error:   err.Error(),
		})
		return nil, f.fail(FlowExchangeFailed, ErrExchangeFailed, "", err)
	}

	if err := f.cfg.Store.Save(token); err != nil {
		// The token is still valid for this process.
		logging.Warn("OAuth", "Failed to persist credentials: %v", err)
		logging.Audit(logging.AuditEvent{
			Action:  "credentials_save",
			Outcome: "failure",
			Target:  f.cfg.Store.BaseURL(),
			Error:   err.Error(),
		})
		fmt.Fprintf(f.cfg.Output, "\nWarning: signed in, but the credentials could not be saved to %s: %v\nThe next run will ask you to sign in again.\n\n", f.cfg.Store.Path(), err)
	}

	f.setState(FlowAuthenticated)
	logging.Audit(logging.AuditEvent{
		Action:  "login",
		Outcome: "success",
		Target:  f.cfg.Store.BaseURL(),
	})

	return token, nil
}

// launchBrowser prints the URL first so it is available even when no
// browser can be started.
func (f *Flow) launchBrowser(authURL string) {
	fmt.Fprintf(f.cfg.Output, "\nOpen the following URL in your browser to sign in:\n\n  %s\n\n", authURL)

	if f.cfg.OnAuthURL != nil {
		f.cfg.OnAuthURL(authURL)
	}

	if err := f.cfg.Browser.Open(authURL); err != nil {
		logging.Debug("OAuth", "Browser launch failed: %v", err)
		fmt.Fprintln(f.cfg.Output, "Could not open a browser automatically. Open the URL above manually.")
	}
}
