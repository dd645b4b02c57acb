package oauth

import (
	"context"
	"net"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgoauth "platform-mcp/pkg/oauth"
)

func fixedIdentity(id string) IdentityFunc {
	return func() (string, error) { return id, nil }
}

func newTestStore(t *testing.T, baseURL string, clock func() time.Time) *TokenStore {
	t.Helper()
	store, err := NewTokenStore(TokenStoreConfig{
		Path:     filepath.Join(t.TempDir(), "platform-mcp", "credentials.json"),
		BaseURL:  baseURL,
		Identity: fixedIdentity("test-host/test-user"),
		Clock:    clock,
	})
	require.NoError(t, err)
	return store
}

// freePort returns a port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// portIsFree reports whether 127.0.0.1:port can be bound.
func portIsFree(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}

// fakeAuthenticator stands in for the interactive flow.
type fakeAuthenticator struct {
	calls atomic.Int32
	token *pkgoauth.Token
	err   error
}

func (f *fakeAuthenticator) Authenticate(context.Context) (*pkgoauth.Token, error) {
	f.calls.Add(1)
	return f.token, f.err
}

func (f *fakeAuthenticator) State() FlowState {
	return FlowIdle
}
