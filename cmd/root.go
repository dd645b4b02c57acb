package cmd

import (
	"errors"
	"fmt"
	"os"

	"platform-mcp/internal/apierror"
	"platform-mcp/internal/oauth"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

// errNotLoggedIn is returned by commands that need stored credentials and
// must not start an interactive login on their own.
var errNotLoggedIn = errors.New("not logged in. Run: platform-mcp auth login")

// Global flags shared by every subcommand.
var (
	rootConfigPath      string
	rootDebug           bool
	rootBaseURL         string
	rootAPIBaseURL      string
	rootCredentialsPath string
	rootNoBrowser       bool
	rootLogFile         string
)

// rootCmd represents the base command for the platform-mcp application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "platform-mcp",
	Short: "Expose the platform API to AI assistants over MCP",
	Long: `platform-mcp signs you in to the platform with OAuth 2.0 (PKCE) and
serves the platform API as MCP tools over stdio.

Credentials are stored encrypted under ~/.config/platform-mcp and refreshed
automatically. Failed requests are classified and retried with
exponential backoff when the failure is transient.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "platform-mcp version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	if errors.Is(err, errNotLoggedIn) {
		return ExitCodeAuthRequired
	}

	// Flow errors are checked before the category: both classify as
	// authentication failures, but only the flow means the login itself broke.
	var flowErr *oauth.FlowError
	if errors.As(err, &flowErr) {
		return ExitCodeAuthFailed
	}

	if apierror.IsCategory(err, apierror.CategoryAuthentication) {
		return ExitCodeAuthRequired
	}

	return ExitCodeError
}

// describedError shows a classified failure with its user message and
// suggestion while keeping the original chain for exit code detection.
type describedError struct {
	classified *apierror.Error
}

func (e *describedError) Error() string {
	if e.classified.Message == "" {
		return e.classified.Describe()
	}
	return fmt.Sprintf("%s (%s)", e.classified.Describe(), e.classified.Message)
}

func (e *describedError) Unwrap() error {
	return e.classified
}

// describeError classifies err for display on the terminal.
func describeError(err error) error {
	if err == nil {
		return nil
	}
	return &describedError{classified: apierror.Classify(err)}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config-path", "", "Configuration directory containing config.yaml (default ~/.config/platform-mcp)")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootBaseURL, "base-url", "", "Platform base URL (env: PLATFORM_MCP_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&rootAPIBaseURL, "api-base-url", "", "Platform API base URL (env: PLATFORM_MCP_API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&rootCredentialsPath, "credentials-path", "", "Credential file (env: PLATFORM_MCP_CREDENTIALS_PATH)")
	rootCmd.PersistentFlags().BoolVar(&rootNoBrowser, "no-browser", false, "Print the login URL instead of opening a browser")
	rootCmd.PersistentFlags().StringVar(&rootLogFile, "log-file", "", "Write logs to a rotated file instead of stderr (env: PLATFORM_MCP_LOG_FILE)")
}
