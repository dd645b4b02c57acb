package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"platform-mcp/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/platform-mcp"
	configFileName = "config.yaml"
)

// Environment variables overriding the configuration file.
const (
	EnvBaseURL         = "PLATFORM_MCP_BASE_URL"
	EnvAPIBaseURL      = "PLATFORM_MCP_API_BASE_URL"
	EnvClientID        = "PLATFORM_MCP_CLIENT_ID"
	EnvScope           = "PLATFORM_MCP_SCOPE"
	EnvCallbackPort    = "PLATFORM_MCP_CALLBACK_PORT"
	EnvCredentialsPath = "PLATFORM_MCP_CREDENTIALS_PATH"
	EnvLogLevel        = "PLATFORM_MCP_LOG_LEVEL"
	EnvNoBrowser       = "PLATFORM_MCP_NO_BROWSER"
	EnvHTTPTimeout     = "PLATFORM_MCP_HTTP_TIMEOUT"
	EnvLogFile         = "PLATFORM_MCP_LOG_FILE"
)

// Seams for tests.
var (
	osUserHomeDir = os.UserHomeDir
	lookupEnv     = os.LookupEnv
)

// GetDefaultConfigPath returns ~/.config/platform-mcp.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads configuration from config.yaml in configPath (the
// default directory when empty), then applies environment overrides.
// A missing file is not an error.
func LoadConfig(configPath string) (Config, error) {
	if configPath == "" {
		var err error
		configPath, err = GetDefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
	}

	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, &ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: "io",
			Message:   "cannot read configuration file",
			Details:   err.Error(),
			Err:       err,
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, &ConfigurationError{
				FilePath:    configFilePath,
				ErrorType:   "parse",
				Message:     "malformed configuration file",
				Details:     err.Error(),
				Suggestions: []string{"Check the YAML syntax", "Durations use Go syntax, e.g. 30s or 5m"},
				Err:         err,
			}
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	if err := ApplyEnv(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// ApplyEnv overrides fields of config from PLATFORM_MCP_* variables.
func ApplyEnv(config *Config) error {
	stringVars := map[string]*string{
		EnvBaseURL:         &config.BaseURL,
		EnvAPIBaseURL:      &config.APIBaseURL,
		EnvClientID:        &config.ClientID,
		EnvScope:           &config.Scope,
		EnvCredentialsPath: &config.CredentialsPath,
		EnvLogLevel:        &config.LogLevel,
		EnvLogFile:         &config.LogFile,
	}
	for name, field := range stringVars {
		if value, ok := lookupEnv(name); ok && value != "" {
			*field = value
		}
	}

	if value, ok := lookupEnv(EnvCallbackPort); ok && value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return envError(EnvCallbackPort, value, "must be an integer", err)
		}
		config.CallbackPort = port
	}

	if value, ok := lookupEnv(EnvNoBrowser); ok && value != "" {
		noBrowser, err := strconv.ParseBool(value)
		if err != nil {
			return envError(EnvNoBrowser, value, "must be true or false", err)
		}
		config.NoBrowser = noBrowser
	}

	if value, ok := lookupEnv(EnvHTTPTimeout); ok && value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return envError(EnvHTTPTimeout, value, "must be a duration such as 30s", err)
		}
		config.HTTPTimeout = timeout
	}

	return nil
}

func envError(name, value, message string, err error) error {
	return &ConfigurationError{
		FilePath:  "$" + name,
		ErrorType: "env",
		Message:   message,
		Details:   fmt.Sprintf("got %q", value),
		Err:       err,
	}
}
