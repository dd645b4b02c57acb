package oauth

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCallbackPort is the fixed port of the local OAuth callback listener.
// The redirect URI registered with the platform is
// http://localhost:8765/callback.
const DefaultCallbackPort = 8765

// DefaultCallbackTimeout is how long to wait for the OAuth callback.
const DefaultCallbackTimeout = 5 * time.Minute

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTemplate = template.Must(template.New("success").Parse(callbackSuccessHTML))
	errorTemplate   = template.Must(template.New("error").Parse(callbackErrorHTML))
)

// CallbackResult represents the query parameters of an OAuth callback.
type CallbackResult struct {
	// Code is the authorization code from the OAuth provider.
	Code string

	// State is the state parameter to verify against the original request.
	State string

	// Error is the error code if the authorization failed.
	Error string

	// ErrorDescription is a human-readable error description.
	ErrorDescription string
}

// IsError returns true if the callback result represents an error.
func (r *CallbackResult) IsError() bool {
	return r.Error != ""
}

// stateMatches compares states in constant time.
func stateMatches(expected, received string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

// CallbackServer is a temporary local HTTP server for receiving the OAuth
// redirect. It honours a single callback and is stopped exactly once.
type CallbackServer struct {
	port          int
	expectedState string
	server        *http.Server
	listener      net.Listener
	resultCh      chan *CallbackResult
	errorCh       chan error
	handleOnce    sync.Once
	stopOnce      sync.Once
	stopped       atomic.Bool
}

// NewCallbackServer creates a callback server on the given port. A port of
// 0 selects DefaultCallbackPort. expectedState only drives which page the
// browser is shown; the caller still verifies the state itself.
func NewCallbackServer(port int, expectedState string) *CallbackServer {
	if port == 0 {
		port = DefaultCallbackPort
	}

	return &CallbackServer{
		port:          port,
		expectedState: expectedState,
		resultCh:      make(chan *CallbackResult, 1),
		errorCh:       make(chan error, 1),
	}
}

// Start binds 127.0.0.1:port and begins serving /callback.
// It returns the redirect URI to send in the authorization request.
func (s *CallbackServer) Start() (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()

	return s.RedirectURI(), nil
}

// Results delivers the single honoured callback.
func (s *CallbackServer) Results() <-chan *CallbackResult {
	return s.resultCh
}

// Errors delivers a fatal serve error, if one occurs.
func (s *CallbackServer) Errors() <-chan error {
	return s.errorCh
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	var handled bool
	s.handleOnce.Do(func() {
		handled = true
		s.processCallback(w, r)
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

// processCallback renders the browser page and hands the result to the
// waiting flow. Called exactly once.
func (s *CallbackServer) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()
	result := &CallbackResult{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}

	tmpl := successTemplate
	status := http.StatusOK
	data := map[string]string{}

	switch {
	case result.IsError():
		tmpl, status = errorTemplate, http.StatusBadRequest
		data["Error"] = result.Error
		data["Description"] = result.ErrorDescription
	case !stateMatches(s.expectedState, result.State):
		tmpl, status = errorTemplate, http.StatusBadRequest
		data["Error"] = "state_mismatch"
		data["Description"] = "The response did not match the login request that was started."
	case result.Code == "":
		tmpl, status = errorTemplate, http.StatusBadRequest
		data["Error"] = "missing_code"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = tmpl.Execute(w, data)

	select {
	case s.resultCh <- result:
	default:
	}
}

// Stop shuts the server down and closes the listener. Safe to call more
// than once; only the first call has an effect.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// Stopped reports whether Stop has run.
func (s *CallbackServer) Stopped() bool {
	return s.stopped.Load()
}

// RedirectURI returns the redirect URI for the authorization request.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/callback", s.port)
}

// Port returns the port the server listens on.
func (s *CallbackServer) Port() int {
	return s.port
}
