package apierror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// httpFailure is a minimal StatusError + HeaderError.
type httpFailure struct {
	status int
	header http.Header
}

func (e *httpFailure) Error() string               { return fmt.Sprintf("status %d", e.status) }
func (e *httpFailure) HTTPStatus() int             { return e.status }
func (e *httpFailure) ResponseHeader() http.Header { return e.header }

type loginFailure struct{ cause error }

func (e *loginFailure) Error() string               { return "login failed" }
func (e *loginFailure) Unwrap() error               { return e.cause }
func (e *loginFailure) AuthenticationFailure() bool { return true }

func TestClassify_StatusCodes(t *testing.T) {
	tests := []struct {
		status    int
		category  Category
		retryable bool
	}{
		{401, CategoryAuthentication, false},
		{403, CategoryAuthorization, false},
		{429, CategoryRateLimit, true},
		{404, CategoryNotFound, false},
		{400, CategoryValidation, false},
		{422, CategoryValidation, false},
		{500, CategoryServer, true},
		{502, CategoryServer, true},
		{503, CategoryServer, true},
		{504, CategoryServer, true},
		{409, CategoryUnknown, false},
		{501, CategoryUnknown, false},
		{418, CategoryUnknown, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			classified := Classify(&httpFailure{status: tt.status})
			require.NotNil(t, classified)
			assert.Equal(t, tt.category, classified.Category)
			assert.Equal(t, tt.retryable, classified.Retryable)
			assert.Equal(t, tt.status, classified.StatusCode)
			assert.Equal(t, tt.category.UserMessage(), classified.UserMessage)
		})
	}
}

func TestClassify_TransportFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category Category
	}{
		{"connection refused", &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}}, CategoryNetwork},
		{"dns", &net.DNSError{Err: "no such host", Name: "x.invalid"}, CategoryNetwork},
		{"deadline exceeded", context.DeadlineExceeded, CategoryNetwork},
		{"wrapped deadline", fmt.Errorf("request: %w", context.DeadlineExceeded), CategoryNetwork},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), CategoryNetwork},
		{"unexpected EOF", fmt.Errorf("body: %w", io.ErrUnexpectedEOF), CategoryNetwork},
		{"text only", errors.New("dial tcp 10.0.0.1:443: i/o timeout"), CategoryNetwork},
		{"cancelled", context.Canceled, CategoryUnknown},
		{"cancelled inside url.Error", &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, CategoryUnknown},
		{"plain error", errors.New("something odd"), CategoryUnknown},
		{"login failure", &loginFailure{}, CategoryAuthentication},
		{"login cancelled", &loginFailure{cause: context.Canceled}, CategoryUnknown},
		{"login failure over status", &loginFailure{cause: &httpFailure{status: 500}}, CategoryAuthentication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := Classify(tt.err)
			require.NotNil(t, classified)
			assert.Equal(t, tt.category, classified.Category)
			assert.Equal(t, tt.category.Retryable(), classified.Retryable)
			assert.Zero(t, classified.StatusCode)
			assert.Same(t, tt.err, classified.Err, "original error must be preserved")
		})
	}
}

func TestClassify_NilAndIdempotent(t *testing.T) {
	assert.Nil(t, Classify(nil))

	first := Classify(&httpFailure{status: 503})
	assert.Same(t, first, Classify(first))
	assert.Same(t, first, Classify(fmt.Errorf("wrapped: %w", first)))
}

func TestClassify_Pure(t *testing.T) {
	err := &httpFailure{status: 404}
	a, b := Classify(err), Classify(err)
	assert.NotSame(t, a, b)
	assert.Equal(t, *a, *b)
}

func TestClassify_RetryableIsFunctionOfCategory(t *testing.T) {
	for c := CategoryUnknown; c <= CategoryNetwork; c++ {
		e := New(c, errors.New("x"))
		assert.Equal(t, c.Retryable(), e.Retryable, c.String())
	}
}

func TestClassify_RateLimitRetryAfter(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header http.Header
		want   time.Duration
		has    bool
	}{
		{"seconds", http.Header{"Retry-After": {"7"}}, 7 * time.Second, true},
		{"http date", http.Header{"Retry-After": {now.Add(90 * time.Second).Format(http.TimeFormat)}}, 90 * time.Second, true},
		{"past date", http.Header{"Retry-After": {now.Add(-time.Minute).Format(http.TimeFormat)}}, 0, true},
		{"rate limit reset", http.Header{"X-Ratelimit-Reset": {fmt.Sprint(now.Add(30 * time.Second).Unix())}}, 30 * time.Second, true},
		{"retry-after wins", http.Header{"Retry-After": {"2"}, "X-Ratelimit-Reset": {fmt.Sprint(now.Add(time.Hour).Unix())}}, 2 * time.Second, true},
		{"garbage", http.Header{"Retry-After": {"soon"}}, 0, false},
		{"absent", http.Header{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyAt(&httpFailure{status: 429, header: tt.header}, now)
			assert.Equal(t, CategoryRateLimit, classified.Category)
			assert.Equal(t, tt.has, classified.HasRetryAfter)
			assert.Equal(t, tt.want, classified.RetryAfter)
		})
	}
}

func TestClassify_RetryAfterOnlyForRateLimit(t *testing.T) {
	classified := Classify(&httpFailure{status: 503, header: http.Header{"Retry-After": {"5"}}})
	assert.Equal(t, CategoryServer, classified.Category)
	assert.False(t, classified.HasRetryAfter)
}

func TestError_FormattingAndUnwrap(t *testing.T) {
	cause := &httpFailure{status: 429}
	e := Classify(cause)
	e.RetryAfter, e.HasRetryAfter = 3*time.Second, true

	assert.Equal(t, "Rate limit exceeded. (status 429)", e.Error())
	assert.Equal(t, "Rate limit exceeded. Retry after 3s. Wait before retrying or reduce how often requests are made.", e.Describe())

	var target *httpFailure
	assert.True(t, errors.As(e, &target))
	assert.Same(t, cause, target)
}

func TestCategoryHelpers(t *testing.T) {
	assert.Equal(t, CategoryNotFound, CategoryOf(&httpFailure{status: 404}))
	assert.Equal(t, CategoryUnknown, CategoryOf(nil))
	assert.True(t, IsCategory(&httpFailure{status: 401}, CategoryAuthentication))
	assert.False(t, IsCategory(nil, CategoryUnknown))

	for c := CategoryUnknown; c <= CategoryNetwork; c++ {
		assert.NotEmpty(t, c.String())
		assert.NotEmpty(t, c.UserMessage())
	}
	assert.Empty(t, CategoryUnknown.Suggestion())
	assert.Contains(t, CategoryAuthentication.Suggestion(), "auth login")
	assert.Contains(t, CategoryAuthorization.Suggestion(), "subscription")
	assert.Contains(t, CategoryServer.Suggestion(), "status page")
}
