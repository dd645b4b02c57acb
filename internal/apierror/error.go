package apierror

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error is a classified failure. It wraps the original error, which stays
// reachable through errors.Unwrap and errors.As.
type Error struct {
	// Category is the failure kind.
	Category Category

	// Message is the original error text.
	Message string

	// UserMessage is the fixed description of the category.
	UserMessage string

	// Suggestion is an actionable hint, possibly empty.
	Suggestion string

	// Retryable is Category.Retryable().
	Retryable bool

	// RetryAfter is the server-provided wait before retrying. Only
	// meaningful when HasRetryAfter is set.
	RetryAfter    time.Duration
	HasRetryAfter bool

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Err is the original error.
	Err error
}

// New builds a classified error for a category with its fixed messages.
func New(category Category, err error) *Error {
	e := &Error{
		Category:    category,
		UserMessage: category.UserMessage(),
		Suggestion:  category.Suggestion(),
		Retryable:   category.Retryable(),
		Err:         err,
	}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.UserMessage
	}
	return fmt.Sprintf("%s (%s)", e.UserMessage, e.Message)
}

// Unwrap returns the original error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Describe renders the error for people: user message, retry hint and
// suggestion.
func (e *Error) Describe() string {
	parts := []string{e.UserMessage}
	if e.HasRetryAfter {
		parts = append(parts, fmt.Sprintf("Retry after %s.", e.RetryAfter.Round(time.Second)))
	}
	if e.Suggestion != "" {
		parts = append(parts, e.Suggestion)
	}
	return strings.Join(parts, " ")
}

// CategoryOf classifies err and returns its category.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	return Classify(err).Category
}

// IsCategory reports whether err classifies as the given category.
func IsCategory(err error, category Category) bool {
	return err != nil && CategoryOf(err) == category
}

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}
