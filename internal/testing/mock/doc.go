// Package mock provides an in-process fake of the remote platform for tests.
//
// Platform serves the OAuth endpoints (/authorize, /token, /revoke) and a
// bearer-protected REST API under /api/v1 on an httptest server. It verifies
// PKCE (S256) on code exchange, rotates refresh tokens on every refresh and
// records what it received, so tests can assert on grant counts, request
// headers and authorization parameters.
//
// Platform.OpenBrowser stands in for the user's browser: handed the
// authorization URL it follows the redirect back to the local callback
// listener, completing the interactive flow without a human. The outcome of
// /authorize is chosen with SetAuthorizeBehavior (approve, deny, forge the
// state or never answer).
//
// Failures are scripted with FailTokenRequests and EnqueueAPIResponses;
// ExpireAccessTokens and RevokeRefreshTokens simulate server-side
// invalidation. Clock and MockClock control token expiry without sleeping.
package mock
