package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var authQuiet bool

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication for platform-mcp",
	Long: `Manage the OAuth credentials platform-mcp uses to call the platform.

The auth command group provides subcommands to login, logout, check status,
refresh and print access tokens.

Examples:
  platform-mcp auth login                    # Sign in with the browser
  platform-mcp auth login --no-browser       # Print the URL instead
  platform-mcp auth status                   # Show authentication status
  platform-mcp auth refresh                  # Force token refresh
  platform-mcp auth token                    # Print a valid access token
  platform-mcp auth logout                   # Revoke and delete credentials`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke and clear stored credentials",
	Long: `Revoke the refresh token at the platform and delete the stored
credentials. Revocation is best effort: the local credentials are removed
even if the platform cannot be reached.

Examples:
  platform-mcp auth logout`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force token refresh",
	Long: `Exchange the stored refresh token for a new access token, regardless
of the current token's expiry.

If the refresh is rejected, the stored credentials are cleared and the
browser login is started.

Examples:
  platform-mcp auth refresh`,
	Args: cobra.NoArgs,
	RunE: runAuthRefresh,
}

// authTokenCmd represents the auth token command
var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a valid access token",
	Long: `Print a valid access token to stdout, refreshing or logging in first
when needed. Useful for scripting:

  curl -H "Authorization: Bearer $(platform-mcp auth token)" ...`,
	Args: cobra.NoArgs,
	RunE: runAuthToken,
}

// authPrint prints output only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func authPrint(format string, args ...interface{}) {
	if !authQuiet {
		fmt.Fprintf(commandOutput, format, args...)
	}
}

// authPrintln prints a line only if the --quiet flag is not set.
func authPrintln(a ...interface{}) {
	if !authQuiet {
		fmt.Fprintln(commandOutput, a...)
	}
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authTokenCmd)

	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress non-essential output")
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}

	if !services.Manager.Status().HasCredentials {
		authPrintln("Not logged in.")
		return nil
	}

	if err := services.Manager.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	authPrint("%s Logged out of %s\n", text.FgGreen.Sprint("✓"), services.Config.BaseURL)
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}

	if !services.Manager.Status().HasCredentials {
		return errNotLoggedIn
	}

	if _, err := services.Manager.Refresh(cmd.Context()); err != nil {
		return describeError(err)
	}

	status := services.Manager.Status()
	authPrint("%s Token refreshed", text.FgGreen.Sprint("✓"))
	if !status.ExpiresAt.IsZero() {
		authPrint(", expires %s", formatExpiryWithDirection(status.ExpiresAt))
	}
	authPrintln()
	return nil
}

func runAuthToken(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}

	token, err := services.Platform.AccessToken(cmd.Context())
	if err != nil {
		return describeError(err)
	}

	// The token is the command's result, so --quiet does not apply.
	fmt.Fprintln(commandOutput, token)
	return nil
}
