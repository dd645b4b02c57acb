package platform

import (
	"encoding/json"
	"fmt"
	"net/http"

	pkgstrings "platform-mcp/pkg/strings"
)

// HTTPError is a non-2xx API response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Error implements the error interface. A JSON "message" or "error" field
// in the body is preferred over the raw body.
func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if detail := e.detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// HTTPStatus returns the response status code.
func (e *HTTPError) HTTPStatus() int {
	return e.StatusCode
}

// ResponseHeader returns the response headers.
func (e *HTTPError) ResponseHeader() http.Header {
	return e.Header
}

func (e *HTTPError) detail() string {
	if len(e.Body) == 0 {
		return ""
	}

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(e.Body, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}

	return pkgstrings.Truncate(string(e.Body), pkgstrings.MaxErrorDetailLen)
}
