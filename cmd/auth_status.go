package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"platform-mcp/internal/oauth"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Status-specific flags
var (
	statusOutput string
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show the stored credential state for the configured platform.

No network request is made: the status reflects the local credential file.

Examples:
  platform-mcp auth status                   # Table output
  platform-mcp auth status -o json           # JSON output`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

func init() {
	authStatusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table, json)")
}

// statusView is the JSON form of the status output.
type statusView struct {
	BaseURL         string `json:"baseUrl"`
	Authenticated   bool   `json:"authenticated"`
	HasCredentials  bool   `json:"hasCredentials"`
	HasRefreshToken bool   `json:"hasRefreshToken"`
	ExpiresAt       string `json:"expiresAt,omitempty"`
	Scope           string `json:"scope,omitempty"`
	CredentialsPath string `json:"credentialsPath"`
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}

	status := services.Manager.Status()

	switch statusOutput {
	case "json":
		return printStatusJSON(status)
	case "table", "":
		printStatusTable(status)
	default:
		return fmt.Errorf("unsupported output format %q (use table or json)", statusOutput)
	}

	if !status.HasCredentials {
		return errNotLoggedIn
	}
	return nil
}

func printStatusJSON(status oauth.Status) error {
	view := statusView{
		BaseURL:         status.BaseURL,
		Authenticated:   status.Authenticated,
		HasCredentials:  status.HasCredentials,
		HasRefreshToken: status.HasRefreshToken,
		Scope:           status.Scope,
		CredentialsPath: status.CredentialsPath,
	}
	if !status.ExpiresAt.IsZero() {
		view.ExpiresAt = status.ExpiresAt.UTC().Format(time.RFC3339)
	}

	encoder := json.NewEncoder(commandOutput)
	encoder.SetIndent("", "  ")
	return encoder.Encode(view)
}

// printStatusTable renders the status as a key/value table. Quiet mode
// skips it; the exit code still tells whether credentials exist.
func printStatusTable(status oauth.Status) {
	if authQuiet {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(commandOutput)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{text.FgHiCyan.Sprint("KEY"), text.FgHiCyan.Sprint("VALUE")})

	t.AppendRow(table.Row{"Platform", status.BaseURL})
	t.AppendRow(table.Row{"Status", formatAuthState(status)})
	if status.HasCredentials {
		if !status.ExpiresAt.IsZero() {
			t.AppendRow(table.Row{"Expires", formatExpiryWithDirection(status.ExpiresAt)})
		}
		if status.HasRefreshToken {
			t.AppendRow(table.Row{"Refresh", text.FgGreen.Sprint("Available")})
		} else {
			t.AppendRow(table.Row{"Refresh", text.FgYellow.Sprint("Not available (re-auth required on expiry)")})
		}
		if status.Scope != "" {
			t.AppendRow(table.Row{"Scope", status.Scope})
		}
	}
	t.AppendRow(table.Row{"Credentials", status.CredentialsPath})
	t.Render()

	if !status.HasCredentials {
		fmt.Fprintln(commandOutput, "Run: platform-mcp auth login")
	}
}

func formatAuthState(status oauth.Status) string {
	switch {
	case status.Authenticated:
		return text.FgGreen.Sprint("Authenticated")
	case status.HasCredentials && status.HasRefreshToken:
		return text.FgYellow.Sprint("Expired (will refresh on next request)")
	case status.HasCredentials:
		return text.FgYellow.Sprint("Expired")
	default:
		return text.FgYellow.Sprint("Not authenticated")
	}
}
