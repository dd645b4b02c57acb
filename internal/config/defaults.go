package config

import "time"

const (
	// DefaultBaseURL is the production platform origin.
	DefaultBaseURL = "https://app.platform.example.com"

	// DefaultAPIPath is appended to the base URL when no API base URL is set.
	DefaultAPIPath = "/api/v1"

	// DefaultClientID is the public OAuth client registered for platform-mcp.
	DefaultClientID = "platform-mcp"

	// DefaultScope is requested when none is configured.
	DefaultScope = "read write"

	// DefaultCallbackPort is the documented OAuth redirect port.
	DefaultCallbackPort = 8765
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		ClientID:        DefaultClientID,
		Scope:           DefaultScope,
		CallbackPort:    DefaultCallbackPort,
		CallbackTimeout: 5 * time.Minute,
		HTTPTimeout:     30 * time.Second,
		LogLevel:        "info",
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
	}
}
