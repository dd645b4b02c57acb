// Package oauth provides the OAuth 2.0 protocol pieces shared by the CLI and
// the MCP server: the Token credential record, PKCE generation (RFC 7636)
// and a client for the platform's /authorize, /token and /revoke endpoints.
//
// Storage, the interactive browser flow and the token lifecycle live in
// internal/oauth, which wraps this package.
//
// # Usage
//
//	client := oauth.NewClient(baseURL, clientID)
//	pkce := oauth.GeneratePKCE()
//	state, err := oauth.GenerateState()
//	authURL := client.AuthorizationURL(redirectURI, state, scope, pkce)
//	token, err := client.ExchangeCode(ctx, code, redirectURI, pkce.CodeVerifier)
//
// Token endpoint requests use JSON bodies. Non-2xx responses are returned as
// *TokenError carrying the status code, the OAuth error code and the
// response headers.
package oauth
