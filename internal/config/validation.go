package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var validLogLevels = []string{"debug", "info", "warn", "warning", "error"}

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks URLs, the callback port, timeouts and retry bounds.
func (c Config) Validate() error {
	var errs ValidationErrors

	if err := validateHTTPURL("baseUrl", c.BaseURL, true); err != nil {
		errs = append(errs, *err)
	}
	if err := validateHTTPURL("apiBaseUrl", c.APIBaseURL, false); err != nil {
		errs = append(errs, *err)
	}
	if strings.TrimSpace(c.ClientID) == "" {
		errs.Add("clientId", "is required")
	}
	if c.CallbackPort < 1 || c.CallbackPort > 65535 {
		errs.Add("callbackPort", "must be between 1 and 65535", c.CallbackPort)
	}
	if c.CallbackTimeout <= 0 {
		errs.Add("callbackTimeout", "must be positive", c.CallbackTimeout)
	}
	if c.HTTPTimeout <= 0 {
		errs.Add("httpTimeout", "must be positive", c.HTTPTimeout)
	}
	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > 10 {
		errs.Add("retry.maxRetries", "must be between 0 and 10", c.Retry.MaxRetries)
	}
	if c.Retry.BaseDelay < 0 {
		errs.Add("retry.baseDelay", "must not be negative", c.Retry.BaseDelay)
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs.Add("retry.maxDelay", "must not be less than retry.baseDelay", c.Retry.MaxDelay)
	}
	if c.LogLevel != "" {
		if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
			errs.Add("logLevel", fmt.Sprintf("must be one of: %s", strings.Join(validLogLevels, ", ")), c.LogLevel)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateHTTPURL(field, value string, required bool) *ValidationError {
	if value == "" {
		if required {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}

	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: field, Value: value, Message: "must be an absolute http or https URL"}
	}
	return nil
}
