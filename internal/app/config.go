package app

import (
	"io"

	"platform-mcp/internal/config"
	"platform-mcp/internal/oauth"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the configured log level.
	Debug bool

	// Silent discards all log output.
	Silent bool

	// Custom configuration directory (optional)
	ConfigPath string

	// Overrides holds command line flags. They win over the file and the
	// environment.
	Overrides Overrides

	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer

	// FlowOutput receives the authorization URL during login. Defaults to
	// os.Stderr.
	FlowOutput io.Writer

	// Browser replaces the system browser, mainly for tests.
	Browser oauth.BrowserOpener

	// Platform configuration. Loaded during bootstrap when nil.
	PlatformConfig *config.Config

	// Version is reported by the MCP server and in the User-Agent.
	Version string
}

// Overrides are command line values applied on top of the loaded
// configuration. Zero values leave the configuration untouched.
type Overrides struct {
	BaseURL         string
	APIBaseURL      string
	CredentialsPath string
	CallbackPort    int
	LogLevel        string
	LogFile         string
	NoBrowser       bool
}

// Apply writes the non-zero overrides into cfg.
func (o Overrides) Apply(cfg *config.Config) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	if o.APIBaseURL != "" {
		cfg.APIBaseURL = o.APIBaseURL
	}
	if o.CredentialsPath != "" {
		cfg.CredentialsPath = o.CredentialsPath
	}
	if o.CallbackPort != 0 {
		cfg.CallbackPort = o.CallbackPort
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.LogFile = o.LogFile
	}
	if o.NoBrowser {
		cfg.NoBrowser = true
	}
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string, overrides Overrides) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Overrides:  overrides,
	}
}
