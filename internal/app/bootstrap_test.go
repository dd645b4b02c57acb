package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platform-mcp/internal/config"
	"platform-mcp/internal/oauth"
	"platform-mcp/internal/testing/mock"
	"platform-mcp/pkg/logging"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.BaseURL = baseURL
	cfg.CredentialsPath = filepath.Join(t.TempDir(), "credentials.json")
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = time.Millisecond
	return &cfg
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "not a url")
	_, err := NewApplication(&Config{PlatformConfig: cfg, Silent: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewApplication_OverridesWin(t *testing.T) {
	cfg := testConfig(t, "https://file.example.com")
	credentials := filepath.Join(t.TempDir(), "other.json")

	application, err := NewApplication(&Config{
		PlatformConfig: cfg,
		Silent:         true,
		Overrides: Overrides{
			BaseURL:         "https://flag.example.com",
			CredentialsPath: credentials,
			NoBrowser:       true,
		},
	})
	require.NoError(t, err)

	services := application.Services()
	assert.Equal(t, "https://flag.example.com", services.Config.BaseURL)
	assert.Equal(t, credentials, services.Store.Path())
	assert.Equal(t, "https://flag.example.com/api/v1", services.Platform.BaseURL())
	assert.True(t, services.Config.NoBrowser)
	assert.Equal(t, RetryPolicy(cfg.Retry), services.Executor.Policy())
}

func TestNewApplication_LoadsConfigFromPath(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "baseUrl: https://dir.example.com\ncredentialsPath: "+filepath.Join(dir, "c.json")+"\n")

	application, err := NewApplication(&Config{ConfigPath: dir, Silent: true})
	require.NoError(t, err)
	assert.Equal(t, "https://dir.example.com", application.Services().Config.BaseURL)
}

func TestServices_EndToEndWithMockPlatform(t *testing.T) {
	platform := mock.NewPlatform(mock.PlatformConfig{})
	t.Cleanup(platform.Close)

	cfg := testConfig(t, platform.URL())
	cfg.ClientID = platform.ClientID()
	cfg.CallbackPort = freePort(t)

	var flowOutput bytes.Buffer
	application, err := NewApplication(&Config{
		PlatformConfig: cfg,
		Silent:         true,
		FlowOutput:     &flowOutput,
		Browser:        oauth.BrowserOpenerFunc(platform.OpenBrowser),
		Version:        "0.0.1-test",
	})
	require.NoError(t, err)
	services := application.Services()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// First call: no credentials, so the browser flow runs against the mock.
	var echo struct {
		Path string `json:"path"`
	}
	require.NoError(t, services.Platform.Get(ctx, "/projects", nil, &echo))
	assert.Equal(t, "/projects", echo.Path)
	assert.Equal(t, 1, platform.GrantCount("authorization_code"))
	assert.Contains(t, flowOutput.String(), platform.URL()+"/authorize")

	requests := platform.APIRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, "platform-mcp/0.0.1-test", requests[0].Header.Get("User-Agent"))

	// Access token rejected: one refresh, no second login.
	platform.ExpireAccessTokens()
	require.NoError(t, services.Platform.Get(ctx, "/projects", nil, nil))
	assert.Equal(t, 1, platform.GrantCount("refresh_token"))
	assert.Equal(t, 1, platform.GrantCount("authorization_code"))

	// Logout revokes and clears.
	require.NoError(t, services.Platform.Logout(ctx))
	assert.Equal(t, 1, platform.RevokeCount())
	assert.Nil(t, services.Store.Load())
	assert.False(t, services.Platform.IsAuthenticated())
}

func TestRunServeMode_StopsWhenInputCloses(t *testing.T) {
	cfg := testConfig(t, "https://p.example.com")
	application, err := NewApplication(&Config{PlatformConfig: cfg, Silent: true})
	require.NoError(t, err)

	in, inWriter := io.Pipe()
	require.NoError(t, inWriter.Close())

	done := make(chan error, 1)
	go func() {
		done <- runServeMode(context.Background(), application.Services(), in, io.Discard)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve mode did not stop after stdin closed")
	}
}

func TestUserAgentTransport(t *testing.T) {
	var got []string
	transport := userAgentTransport{
		userAgent: "platform-mcp/1",
		next: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			got = append(got, req.Header.Get("User-Agent"))
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
		}),
	}

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	_, err := transport.RoundTrip(req)
	require.NoError(t, err)
	assert.Empty(t, req.Header.Get("User-Agent"), "original request must not be mutated")

	req.Header.Set("User-Agent", "custom")
	_, err = transport.RoundTrip(req)
	require.NoError(t, err)

	assert.Equal(t, []string{"platform-mcp/1", "custom"}, got)
}

func TestOverrides_ZeroValuesKeepConfig(t *testing.T) {
	cfg := config.GetDefaultConfig()
	before := cfg
	Overrides{}.Apply(&cfg)
	assert.Equal(t, before, cfg)

	Overrides{CallbackPort: 9999, LogLevel: "debug", APIBaseURL: "https://api.example.com"}.Apply(&cfg)
	assert.Equal(t, 9999, cfg.CallbackPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
}

func TestNewApplication_LogFileWinsOverSilent(t *testing.T) {
	cfg := testConfig(t, "https://file.example.com")
	cfg.LogFile = filepath.Join(t.TempDir(), "platform-mcp.log")
	t.Cleanup(func() { logging.InitForCLI(logging.LevelInfo, io.Discard) })

	_, err := NewApplication(&Config{PlatformConfig: cfg, Silent: true, Debug: true})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Initialized for https://file.example.com")
}
