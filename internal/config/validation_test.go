package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing base url", func(c *Config) { c.BaseURL = "" }, "baseUrl"},
		{"relative base url", func(c *Config) { c.BaseURL = "platform.example.com" }, "baseUrl"},
		{"ftp api url", func(c *Config) { c.APIBaseURL = "ftp://platform.example.com" }, "apiBaseUrl"},
		{"missing client id", func(c *Config) { c.ClientID = " " }, "clientId"},
		{"port zero", func(c *Config) { c.CallbackPort = 0 }, "callbackPort"},
		{"port too high", func(c *Config) { c.CallbackPort = 70000 }, "callbackPort"},
		{"no callback timeout", func(c *Config) { c.CallbackTimeout = 0 }, "callbackTimeout"},
		{"no http timeout", func(c *Config) { c.HTTPTimeout = -1 }, "httpTimeout"},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, "retry.maxRetries"},
		{"max below base", func(c *Config) { c.Retry.MaxDelay = c.Retry.BaseDelay / 2 }, "retry.maxDelay"},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, "logLevel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			errs, ok := err.(ValidationErrors)
			require.True(t, ok)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.BaseURL = ""
	cfg.CallbackPort = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "field 'baseUrl'")
	assert.Contains(t, err.Error(), "field 'callbackPort'")
}

func TestValidationErrors_Add(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("scope", "is odd", "x")
	assert.True(t, errs.HasErrors())
	assert.Equal(t, "x", errs[0].Value)
	assert.Equal(t, "field 'scope': is odd", errs.Error())
}
