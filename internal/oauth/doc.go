// Package oauth implements client-side authentication against the platform:
// the encrypted credential store, the interactive PKCE authorization flow
// and the token lifecycle manager that every API call goes through.
//
// # Token lifecycle
//
// Manager.AccessToken returns the stored access token if it is valid for at
// least five more minutes. Otherwise it refreshes it with the stored
// refresh token, and if that fails for any reason it clears the credential
// file and runs the interactive Flow. Concurrent callers share one refresh
// or login.
//
// # Authorization flow
//
// Flow.Authenticate binds http://localhost:8765/callback on 127.0.0.1,
// prints the authorization URL, tries to open it in the browser and waits
// up to five minutes for a single callback. A callback carrying an error
// fails with ErrDenied, one whose state differs from the generated state
// fails with ErrStateMismatch before any token request is made. The
// listener is closed on every exit path.
//
// # Credential storage
//
// TokenStore writes a JSON envelope holding AES-256-GCM encrypted tokens to
// ~/.config/platform-mcp/credentials.json with mode 0600. The key is derived
// from the host and user name, which makes the encryption an obfuscation
// layer: it keeps tokens out of plain sight but does not protect them from
// anyone who can run code as the same user.
package oauth
