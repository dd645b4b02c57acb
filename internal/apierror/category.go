package apierror

import "net/http"

// Category is the closed set of failure kinds.
type Category int

const (
	// CategoryUnknown is anything not covered below, including cancellation.
	CategoryUnknown Category = iota
	// CategoryAuthentication is HTTP 401 or a failed login.
	CategoryAuthentication
	// CategoryAuthorization is HTTP 403.
	CategoryAuthorization
	// CategoryRateLimit is HTTP 429.
	CategoryRateLimit
	// CategoryNotFound is HTTP 404.
	CategoryNotFound
	// CategoryValidation is HTTP 400 or 422.
	CategoryValidation
	// CategoryServer is HTTP 500, 502, 503 or 504.
	CategoryServer
	// CategoryNetwork means no response was received.
	CategoryNetwork
)

// String returns the lower-case category name.
func (c Category) String() string {
	switch c {
	case CategoryAuthentication:
		return "authentication"
	case CategoryAuthorization:
		return "authorization"
	case CategoryRateLimit:
		return "rate_limit"
	case CategoryNotFound:
		return "not_found"
	case CategoryValidation:
		return "validation"
	case CategoryServer:
		return "server"
	case CategoryNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Retryable reports whether failures of this category may succeed when
// repeated. Only rate limiting, server and network failures are.
func (c Category) Retryable() bool {
	switch c {
	case CategoryRateLimit, CategoryServer, CategoryNetwork:
		return true
	default:
		return false
	}
}

// UserMessage is the fixed human-readable description of the category.
func (c Category) UserMessage() string {
	switch c {
	case CategoryAuthentication:
		return "Authentication failed. Your session may have expired."
	case CategoryAuthorization:
		return "You do not have permission to perform this action."
	case CategoryRateLimit:
		return "Rate limit exceeded."
	case CategoryNotFound:
		return "The requested resource was not found."
	case CategoryValidation:
		return "The request was rejected as invalid."
	case CategoryServer:
		return "The platform encountered an internal error."
	case CategoryNetwork:
		return "Could not reach the platform."
	default:
		return "An unexpected error occurred."
	}
}

// Suggestion is the fixed actionable hint for the category, if any.
func (c Category) Suggestion() string {
	switch c {
	case CategoryAuthentication:
		return "Re-authenticate with 'platform-mcp auth login'."
	case CategoryAuthorization:
		return "Check that your subscription tier includes this feature."
	case CategoryRateLimit:
		return "Wait before retrying or reduce how often requests are made."
	case CategoryNotFound:
		return "Check that the identifier or path is correct."
	case CategoryValidation:
		return "Check the request parameters."
	case CategoryServer:
		return "Try again later and check the platform status page."
	case CategoryNetwork:
		return "Check your internet connection and the configured base URL."
	default:
		return ""
	}
}

// CategoryForStatus maps an HTTP status code to a category.
func CategoryForStatus(status int) Category {
	switch status {
	case http.StatusUnauthorized:
		return CategoryAuthentication
	case http.StatusForbidden:
		return CategoryAuthorization
	case http.StatusTooManyRequests:
		return CategoryRateLimit
	case http.StatusNotFound:
		return CategoryNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CategoryValidation
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}
