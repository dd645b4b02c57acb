package oauth

import (
	"fmt"
	"net/http"
)

// TokenError is returned when the token or revoke endpoint answers with a
// non-2xx status.
type TokenError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is the OAuth error code ("invalid_grant", ...), if the body had one.
	Code string `json:"error"`

	// Description is the human-readable error_description, if any.
	Description string `json:"error_description"`

	// Header holds the response headers (Retry-After and friends).
	Header http.Header `json:"-"`
}

// Error implements the error interface.
func (e *TokenError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("token request failed with status %d: %s - %s", e.StatusCode, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("token request failed with status %d: %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("token request failed with status %d", e.StatusCode)
	}
}

// HTTPStatus returns the response status code.
func (e *TokenError) HTTPStatus() int {
	return e.StatusCode
}

// ResponseHeader returns the response headers.
func (e *TokenError) ResponseHeader() http.Header {
	return e.Header
}
