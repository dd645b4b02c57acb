package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"platform-mcp/internal/platform"

	"github.com/spf13/cobra"
)

// Request-specific flags
var (
	requestData  string
	requestQuery []string
)

// requestCmd calls the platform API once with the full request layer:
// token refresh on 401, retries with backoff, error classification.
var requestCmd = &cobra.Command{
	Use:   "request METHOD PATH",
	Short: "Call the platform API",
	Long: `Call the platform API with the stored credentials and print the JSON
response. PATH is relative to the API base URL.

Transient failures (rate limiting, server errors, network errors) are
retried with exponential backoff. A rejected access token is refreshed once.

Examples:
  platform-mcp request GET /projects
  platform-mcp request GET /projects --query limit=10 --query page=2
  platform-mcp request POST /projects --data '{"name": "demo"}'`,
	Args: cobra.ExactArgs(2),
	RunE: runRequest,
}

func init() {
	rootCmd.AddCommand(requestCmd)

	requestCmd.Flags().StringVarP(&requestData, "data", "d", "", "JSON request body")
	requestCmd.Flags().StringArrayVar(&requestQuery, "query", nil, "Query parameter as key=value (repeatable)")
}

func runRequest(cmd *cobra.Command, args []string) error {
	method := strings.ToUpper(args[0])
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported method %q", args[0])
	}

	query, err := parseQuery(requestQuery)
	if err != nil {
		return err
	}

	req := platform.Request{
		Method: method,
		Path:   args[1],
		Query:  query,
	}
	if requestData != "" {
		if !json.Valid([]byte(requestData)) {
			return fmt.Errorf("--data is not valid JSON")
		}
		req.Body = json.RawMessage(requestData)
	}

	services, err := loadServices()
	if err != nil {
		return err
	}

	var response json.RawMessage
	if err := services.Platform.Do(cmd.Context(), req, &response); err != nil {
		return describeError(err)
	}

	if len(response) == 0 {
		return nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, response, "", "  "); err != nil {
		out.Reset()
		out.Write(response)
	}
	fmt.Fprintln(commandOutput, out.String())
	return nil
}

func parseQuery(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query parameter %q, expected key=value", pair)
		}
		values.Add(key, value)
	}
	return values, nil
}
