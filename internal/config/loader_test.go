package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withEnv replaces the environment lookup for the duration of the test.
func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	original := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = original })
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	withEnv(t, nil)

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	withEnv(t, nil)
	dir := t.TempDir()
	writeConfig(t, dir, `
baseUrl: https://staging.platform.example.com
scope: read
callbackTimeout: 2m
retry:
  maxRetries: 5
  baseDelay: 250ms
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://staging.platform.example.com", cfg.BaseURL)
	assert.Equal(t, "read", cfg.Scope)
	assert.Equal(t, 2*time.Minute, cfg.CallbackTimeout)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, DefaultClientID, cfg.ClientID)
	assert.Equal(t, DefaultCallbackPort, cfg.CallbackPort)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "baseUrl: https://file.example.com\ncallbackPort: 9000\n")
	withEnv(t, map[string]string{
		EnvBaseURL:         "https://env.example.com",
		EnvCallbackPort:    "9100",
		EnvClientID:        "env-client",
		EnvCredentialsPath: "/tmp/creds.json",
		EnvNoBrowser:       "true",
		EnvHTTPTimeout:     "10s",
		EnvLogLevel:        "debug",
		EnvLogFile:         "/tmp/platform-mcp.log",
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.BaseURL)
	assert.Equal(t, 9100, cfg.CallbackPort)
	assert.Equal(t, "env-client", cfg.ClientID)
	assert.Equal(t, "/tmp/creds.json", cfg.CredentialsPath)
	assert.True(t, cfg.NoBrowser)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/platform-mcp.log", cfg.LogFile)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		env       map[string]string
		errorType string
	}{
		{name: "malformed yaml", file: "baseUrl: [unclosed", errorType: "parse"},
		{name: "bad duration", file: "httpTimeout: forever", errorType: "parse"},
		{name: "bad port env", env: map[string]string{EnvCallbackPort: "eighty"}, errorType: "env"},
		{name: "bad bool env", env: map[string]string{EnvNoBrowser: "perhaps"}, errorType: "env"},
		{name: "bad duration env", env: map[string]string{EnvHTTPTimeout: "10"}, errorType: "env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, tt.env)
			dir := t.TempDir()
			if tt.file != "" {
				writeConfig(t, dir, tt.file)
			}

			_, err := LoadConfig(dir)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.errorType, cfgErr.ErrorType)
			assert.NotNil(t, errors.Unwrap(err))
			assert.Contains(t, cfgErr.DetailedError(), "Configuration Error")
		})
	}
}

func TestLoadConfig_DefaultDirectory(t *testing.T) {
	withEnv(t, nil)
	home := t.TempDir()
	original := osUserHomeDir
	osUserHomeDir = func() (string, error) { return home, nil }
	t.Cleanup(func() { osUserHomeDir = original })

	dir := filepath.Join(home, userConfigDir)
	require.NoError(t, os.MkdirAll(dir, 0700))
	writeConfig(t, dir, "scope: admin\n")

	path, err := GetDefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, dir, path)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Scope)
}

func TestResolvedAPIBaseURL(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.BaseURL = "https://p.example.com/"
	assert.Equal(t, "https://p.example.com/api/v1", cfg.ResolvedAPIBaseURL())

	cfg.APIBaseURL = "https://api.p.example.com/v2/"
	assert.Equal(t, "https://api.p.example.com/v2", cfg.ResolvedAPIBaseURL())
}
