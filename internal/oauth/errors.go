package oauth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the terminal failure states of an authorization
// attempt. Compare with errors.Is; the concrete error is a *FlowError.
var (
	// ErrDenied means the authorization server redirected back with an error.
	ErrDenied = errors.New("authorization denied")

	// ErrStateMismatch means the callback state did not match the one sent.
	// The attempt is aborted before any token request is made.
	ErrStateMismatch = errors.New("state mismatch - possible CSRF attack")

	// ErrCallbackTimeout means no callback arrived within the callback timeout.
	ErrCallbackTimeout = errors.New("timed out waiting for authorization callback")

	// ErrFlowCancelled means the caller's context ended the attempt.
	ErrFlowCancelled = errors.New("authentication cancelled")

	// ErrExchangeFailed means the authorization code could not be exchanged.
	ErrExchangeFailed = errors.New("token exchange failed")

	// ErrListenerBind means the callback port is held, usually by another
	// login in progress.
	ErrListenerBind = errors.New("authentication already in progress: callback port unavailable")

	// ErrAuthInProgress means this process is already running an attempt.
	ErrAuthInProgress = errors.New("authentication already in progress")
)

// FlowError is returned by Flow.Authenticate for every failed attempt.
type FlowError struct {
	// State is the terminal state the attempt reached.
	State FlowState

	// Kind is one of the sentinel errors above.
	Kind error

	// Detail is extra context, e.g. the authorization server's error code.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

func newFlowError(state FlowState, kind error, detail string, cause error) *FlowError {
	return &FlowError{State: state, Kind: kind, Detail: detail, Err: cause}
}

// Error implements the error interface.
func (e *FlowError) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is matches the sentinel kind.
func (e *FlowError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// AuthenticationFailure marks flow errors as authentication failures for
// error classification.
func (e *FlowError) AuthenticationFailure() bool {
	return true
}
