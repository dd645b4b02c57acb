// Package apierror classifies failures of platform calls into a closed set
// of categories.
//
// Each Category has a fixed retryability (only RateLimit, Server and
// Network are retryable), a user message and an optional suggestion.
// Classify accepts any error: HTTP failures are recognised through the
// StatusError and HeaderError interfaces, transport failures through the
// net, url and syscall error types, and everything else is Unknown.
// Rate-limited responses carry the server's Retry-After or
// X-RateLimit-Reset hint as Error.RetryAfter.
package apierror
