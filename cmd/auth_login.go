package cmd

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Login-specific flags
var (
	loginForce bool
)

// spinnerOutput receives the progress spinner. Stdout stays clean for
// scripts.
var spinnerOutput io.Writer = os.Stderr

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the platform",
	Long: `Sign in to the platform with the OAuth 2.0 authorization code flow
and PKCE.

The command opens the authorization page in your browser and waits for the
redirect on http://localhost:8765/callback. With --no-browser the URL is
printed instead. Credentials are stored encrypted for later use.

Examples:
  platform-mcp auth login                    # Sign in unless already signed in
  platform-mcp auth login --force            # Sign in again
  platform-mcp auth login --no-browser       # Print the authorization URL`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginForce, "force", false, "Sign in even if valid credentials are stored")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}

	if !loginForce && services.Manager.IsAuthenticated() {
		status := services.Manager.Status()
		authPrint("%s Already logged in to %s", text.FgGreen.Sprint("✓"), status.BaseURL)
		if !status.ExpiresAt.IsZero() {
			authPrint(" (expires %s)", formatExpiryWithDirection(status.ExpiresAt))
		}
		authPrintln()
		return nil
	}

	var s *spinner.Spinner
	if !authQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(spinnerOutput))
		s.Suffix = " Waiting for authorization in your browser..."
		s.Start()
	}

	token, err := services.Manager.Login(cmd.Context())
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return describeError(err)
	}

	authPrint("%s Logged in to %s", text.FgGreen.Sprint("✓"), services.Config.BaseURL)
	if !token.ExpiresAt.IsZero() {
		authPrint(" (expires %s)", formatExpiryWithDirection(token.ExpiresAt))
	}
	authPrintln()
	return nil
}
