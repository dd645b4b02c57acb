package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"platform-mcp/internal/app"
	"platform-mcp/internal/oauth"

	"github.com/jedib0t/go-pretty/v6/text"
)

// Seams for tests.
var (
	// newApplication builds the application for a command.
	newApplication = app.NewApplication

	// browserOpener replaces the system browser when set.
	browserOpener oauth.BrowserOpener

	// commandOutput receives all command output.
	commandOutput io.Writer = os.Stdout
)

// newAppConfig builds the application configuration from the global flags.
// With silent set, logs are discarded unless --debug is given.
func newAppConfig(silent bool) *app.Config {
	cfg := app.NewConfig(rootDebug, rootConfigPath, app.Overrides{
		BaseURL:         rootBaseURL,
		APIBaseURL:      rootAPIBaseURL,
		CredentialsPath: rootCredentialsPath,
		LogFile:         rootLogFile,
		NoBrowser:       rootNoBrowser,
	})
	cfg.Silent = silent && !rootDebug
	cfg.Version = GetVersion()
	cfg.Browser = browserOpener
	return cfg
}

// loadServices bootstraps the application for a one-shot CLI command.
func loadServices() (*app.Services, error) {
	application, err := newApplication(newAppConfig(true))
	if err != nil {
		return nil, err
	}
	return application.Services(), nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatExpiryWithDirection formats a time as "in X" or "expired X ago".
func formatExpiryWithDirection(expiresAt time.Time) string {
	remaining := time.Until(expiresAt)
	if remaining > 0 {
		return "in " + formatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", formatDuration(-remaining))
}
