package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"platform-mcp/internal/apierror"
	"platform-mcp/pkg/logging"
)

// SleepFunc waits for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs operations under a retry policy.
type Executor struct {
	policy   Policy
	sleep    SleepFunc
	random   func() float64
	classify func(error) *apierror.Error
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleep replaces the wait between attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

// WithRandom replaces the jitter source. It must return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(e *Executor) {
		e.random = random
	}
}

// WithClassifier replaces apierror.Classify.
func WithClassifier(classify func(error) *apierror.Error) Option {
	return func(e *Executor) {
		e.classify = classify
	}
}

// NewExecutor creates an executor whose default policy is policy.
func NewExecutor(policy Policy, opts ...Option) *Executor {
	e := &Executor{
		policy:   policy,
		sleep:    sleepContext,
		random:   rand.Float64,
		classify: apierror.Classify,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's default policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Do runs op until it succeeds, fails with a category the policy does not
// retry, or the retry budget is spent. The error of the last attempt is
// returned unchanged. override, when non-nil, replaces the executor's
// policy for this call only.
//
// Between attempts Do waits for the server's retry hint when the failure
// carries one and for the policy's backoff otherwise. If ctx ends during a
// wait, the last error is returned joined with ctx.Err().
func Do[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error), override *Policy) (T, error) {
	if e == nil {
		e = NewExecutor(DefaultPolicy)
	}
	policy := e.policy
	if override != nil {
		policy = *override
	}

	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		classified := e.classify(err)
		if !policy.Retries(classified.Category) {
			return result, err
		}
		if attempt >= policy.MaxRetries {
			logging.Debug("Retry", "Giving up after %d attempts: %v", attempt+1, err)
			return result, err
		}

		wait := policy.Backoff(attempt, e.random())
		if classified.HasRetryAfter {
			wait = classified.RetryAfter
		}

		logging.Debug("Retry", "Attempt %d failed (%s), retrying in %v", attempt+1, classified.Category, wait)

		if sleepErr := e.sleep(ctx, wait); sleepErr != nil {
			return result, errors.Join(err, sleepErr)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
