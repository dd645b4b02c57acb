// Package retry repeats failed operations with capped exponential backoff.
//
// Failures are classified with apierror.Classify. Only categories the
// Policy retries are repeated, at most MaxRetries times. A rate limit hint
// from the server replaces the computed backoff. Every wait honours the
// caller's context.
package retry
