package config

import (
	"strings"
	"time"
)

// Config is the top-level configuration structure for platform-mcp.
type Config struct {
	// BaseURL is the platform origin hosting /authorize, /token and /revoke.
	BaseURL string `yaml:"baseUrl"`

	// APIBaseURL is prefixed to API paths. Defaults to {BaseURL}/api/v1.
	APIBaseURL string `yaml:"apiBaseUrl,omitempty"`

	ClientID string `yaml:"clientId"`
	Scope    string `yaml:"scope,omitempty"`

	// CallbackPort is the fixed local port of the OAuth redirect listener.
	CallbackPort int `yaml:"callbackPort"`

	// CallbackTimeout bounds the wait for the browser callback.
	CallbackTimeout time.Duration `yaml:"callbackTimeout"`

	// CredentialsPath overrides ~/.config/platform-mcp/credentials.json.
	CredentialsPath string `yaml:"credentialsPath,omitempty"`

	// HTTPTimeout bounds a single API request attempt.
	HTTPTimeout time.Duration `yaml:"httpTimeout"`

	// NoBrowser prints the authorization URL instead of opening it.
	NoBrowser bool `yaml:"noBrowser,omitempty"`

	LogLevel string `yaml:"logLevel,omitempty"`

	// LogFile sends logs to a size-rotated file instead of stderr.
	LogFile string `yaml:"logFile,omitempty"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig configures retries of transient API failures.
type RetryConfig struct {
	MaxRetries int           `yaml:"maxRetries"`
	BaseDelay  time.Duration `yaml:"baseDelay"`
	MaxDelay   time.Duration `yaml:"maxDelay"`
}

// ResolvedAPIBaseURL returns APIBaseURL, or {BaseURL}/api/v1 when unset.
func (c Config) ResolvedAPIBaseURL() string {
	if c.APIBaseURL != "" {
		return strings.TrimRight(c.APIBaseURL, "/")
	}
	return strings.TrimRight(c.BaseURL, "/") + DefaultAPIPath
}
