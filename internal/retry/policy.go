package retry

import (
	"math"
	"slices"
	"time"

	"platform-mcp/internal/apierror"
)

// Jitter is the symmetric fraction applied to every computed backoff.
const Jitter = 0.2

// DefaultPolicy retries transient failures three times, starting at one
// second and doubling up to thirty.
var DefaultPolicy = Policy{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   30 * time.Second,
}

// Policy bounds how often and how long an operation is retried.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the wait before the first retry, doubled on each
	// further retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff before jitter.
	MaxDelay time.Duration

	// RetryableCategories lists the categories that are retried. Empty
	// means every category whose Retryable() is true.
	RetryableCategories []apierror.Category
}

// Retries reports whether failures of the category are retried under p.
func (p Policy) Retries(category apierror.Category) bool {
	if len(p.RetryableCategories) == 0 {
		return category.Retryable()
	}
	return slices.Contains(p.RetryableCategories, category)
}

// Backoff returns the wait before retry number attempt (zero based):
// min(BaseDelay*2^attempt, MaxDelay) scaled by a factor in [0.8, 1.2]
// chosen by r, which must be in [0, 1).
func (p Policy) Backoff(attempt int, r float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if r < 0 {
		r = 0
	} else if r >= 1 {
		r = math.Nextafter(1, 0)
	}

	base := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}

	factor := 1 + Jitter*(2*r-1)
	return time.Duration(base * factor)
}
