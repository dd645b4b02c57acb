package apierror

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// StatusError is implemented by failures that carry an HTTP response status.
type StatusError interface {
	error
	HTTPStatus() int
}

// HeaderError is implemented by failures that carry the response headers.
type HeaderError interface {
	error
	ResponseHeader() http.Header
}

// authenticationFailure is implemented by login failures (denied,
// state mismatch, timeout) that must never be retried.
type authenticationFailure interface {
	error
	AuthenticationFailure() bool
}

// Classify maps any failure to a classified error. It is total: every
// input, including wrapped and unknown errors, yields a category. An error
// that is already classified is returned unchanged. Classify(nil) is nil.
func Classify(err error) *Error {
	return classifyAt(err, time.Now())
}

// classifyAt classifies with an explicit clock for converting HTTP-date
// and epoch retry hints to a relative wait.
func classifyAt(err error, now time.Time) *Error {
	if err == nil {
		return nil
	}

	if classified, ok := As(err); ok {
		return classified
	}

	var authErr authenticationFailure
	if errors.As(err, &authErr) && authErr.AuthenticationFailure() {
		if errors.Is(err, context.Canceled) {
			return New(CategoryUnknown, err)
		}
		return New(CategoryAuthentication, err)
	}

	var statusErr StatusError
	if errors.As(err, &statusErr) {
		status := statusErr.HTTPStatus()
		e := New(CategoryForStatus(status), err)
		e.StatusCode = status

		if e.Category == CategoryRateLimit {
			var headerErr HeaderError
			if errors.As(err, &headerErr) {
				if wait, ok := RetryAfterFromHeader(headerErr.ResponseHeader(), now); ok {
					e.RetryAfter, e.HasRetryAfter = wait, true
				}
			}
		}
		return e
	}

	// Cancellation is the caller's decision, not a transport failure.
	if errors.Is(err, context.Canceled) {
		return New(CategoryUnknown, err)
	}

	if isNetworkFailure(err) {
		return New(CategoryNetwork, err)
	}

	return New(CategoryUnknown, err)
}

// RetryAfterFromHeader reads the server's retry hint. Retry-After may be
// delta-seconds or an HTTP date; X-RateLimit-Reset is epoch seconds.
// Retry-After wins when both are present. Past instants yield zero.
func RetryAfterFromHeader(header http.Header, now time.Time) (time.Duration, bool) {
	if header == nil {
		return 0, false
	}

	if value := strings.TrimSpace(header.Get("Retry-After")); value != "" {
		if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
			if seconds < 0 {
				seconds = 0
			}
			return time.Duration(seconds) * time.Second, true
		}
		if at, err := http.ParseTime(value); err == nil {
			return nonNegative(at.Sub(now)), true
		}
	}

	if value := strings.TrimSpace(header.Get("X-RateLimit-Reset")); value != "" {
		if epoch, err := strconv.ParseInt(value, 10, 64); err == nil {
			return nonNegative(time.Unix(epoch, 0).Sub(now)), true
		}
	}

	return 0, false
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// isNetworkFailure reports whether err means no response was received:
// timeouts, DNS, refused or reset connections, TLS failures and truncated
// responses.
func isNetworkFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	if isTLSError(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// A url.Error is produced by http.Client for any failure before a
		// response arrived.
		return true
	}

	return hasNetworkKeyword(err.Error())
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	var certErr x509.CertificateInvalidError
	var hostErr x509.HostnameError
	var unknownAuthErr x509.UnknownAuthorityError

	return errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr)
}

// hasNetworkKeyword catches transport failures that lost their type while
// being wrapped as text.
func hasNetworkKeyword(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
	}

	lower := strings.ToLower(errStr)
	for _, keyword := range networkKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
