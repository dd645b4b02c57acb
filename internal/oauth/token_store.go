package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"platform-mcp/pkg/logging"
	pkgoauth "platform-mcp/pkg/oauth"
)

// credentialsVersion is the envelope format version. Files with any other
// version are ignored.
const credentialsVersion = 1

// credentialEnvelope is the on-disk layout of the credential file.
type credentialEnvelope struct {
	Version int              `json:"version"`
	Tokens  *encryptedTokens `json:"tokens"`
	BaseURL string           `json:"baseUrl"`
}

type encryptedTokens struct {
	AccessTokenCipher  string `json:"accessTokenCipher"`
	RefreshTokenCipher string `json:"refreshTokenCipher"`
	ExpiresAt          int64  `json:"expiresAt"`
	Scope              string `json:"scope,omitempty"`
}

// TokenStore persists the credential record for one platform base URL.
//
// SECURITY: the access and refresh tokens are encrypted with AES-256-GCM
// under a key derived from the host name and OS user name. The key is
// reproducible by anyone running as the same user on the same host, so
// this is obfuscation against casual inspection of the file (backups,
// screen sharing, grep), not protection against a local attacker. The real
// protection is the 0600 file mode and 0700 directory mode.
//
// The store is the only writer of the credential file. Concurrent use from
// one process is safe; between processes the last write wins.
type TokenStore struct {
	mu       sync.Mutex
	path     string
	baseURL  string
	identity IdentityFunc
	now      func() time.Time

	// key cache, keyed by the identity it was derived from
	keyIdentity string
	key         []byte
}

// TokenStoreConfig configures the token store.
type TokenStoreConfig struct {
	// Path is the credential file. Defaults to
	// ~/.config/platform-mcp/credentials.json.
	Path string

	// BaseURL is the platform base URL credentials are issued for.
	BaseURL string

	// Identity supplies the machine identity. Defaults to MachineIdentity.
	Identity IdentityFunc

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// DefaultCredentialsPath returns ~/.config/platform-mcp/credentials.json.
func DefaultCredentialsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, pkgoauth.DefaultTokenStorageDir, pkgoauth.DefaultCredentialsFile), nil
}

// NewTokenStore creates a token store. The directory is created lazily on
// the first Save.
func NewTokenStore(cfg TokenStoreConfig) (*TokenStore, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("token store requires a base URL")
	}

	path := cfg.Path
	if path == "" {
		var err error
		if path, err = DefaultCredentialsPath(); err != nil {
			return nil, err
		}
	}

	identity := cfg.Identity
	if identity == nil {
		identity = MachineIdentity
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &TokenStore{
		path:     path,
		baseURL:  pkgoauth.NormalizeBaseURL(cfg.BaseURL),
		identity: identity,
		now:      now,
	}, nil
}

// Path returns the credential file location.
func (s *TokenStore) Path() string {
	return s.path
}

// BaseURL returns the base URL this store accepts credentials for.
func (s *TokenStore) BaseURL() string {
	return s.baseURL
}

// Save encrypts and writes the credential record, replacing any previous
// record wholesale.
// SECURITY: token values are never logged.
func (s *TokenStore) Save(token *pkgoauth.Token) error {
	if token == nil || token.AccessToken == "" {
		return errors.New("refusing to store an empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.cipherKey()
	if err != nil {
		return fmt.Errorf("failed to derive credential key: %w", err)
	}

	accessCipher, err := sealField(key, token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refreshCipher, err := sealField(key, token.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	envelope := credentialEnvelope{
		Version: credentialsVersion,
		Tokens: &encryptedTokens{
			AccessTokenCipher:  accessCipher,
			RefreshTokenCipher: refreshCipher,
			ExpiresAt:          token.ExpiresAt.Unix(),
			Scope:              token.Scope,
		},
		BaseURL: s.baseURL,
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := s.writeFile(data); err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "token_store_failed",
			Outcome: "failure",
			Target:  s.baseURL,
			Error:   err.Error(),
		})
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	logging.Audit(logging.AuditEvent{
		Action:  "token_stored",
		Outcome: "success",
		Target:  s.baseURL,
	})
	logging.Debug("TokenStore", "Stored credentials expiring at %s (refresh token: %t)",
		token.ExpiresAt.Format(time.RFC3339), token.RefreshToken != "")

	return nil
}

// Load returns the stored credential record, or nil if there is none that
// can be used: missing or unreadable file, malformed JSON, another format
// version, another base URL, or a record that cannot be decrypted with this
// machine's key. Load never fails loudly.
func (s *TokenStore) Load() *pkgoauth.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Debug("TokenStore", "Cannot read credential file: %v", err)
		}
		return nil
	}

	var envelope credentialEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		logging.Debug("TokenStore", "Ignoring malformed credential file: %v", err)
		return nil
	}

	if envelope.Version != credentialsVersion {
		logging.Debug("TokenStore", "Ignoring credential file with version %d", envelope.Version)
		return nil
	}
	if pkgoauth.NormalizeBaseURL(envelope.BaseURL) != s.baseURL {
		logging.Debug("TokenStore", "Ignoring credentials issued for %s", envelope.BaseURL)
		return nil
	}
	if envelope.Tokens == nil {
		return nil
	}

	key, err := s.cipherKey()
	if err != nil {
		logging.Debug("TokenStore", "Cannot derive credential key: %v", err)
		return nil
	}

	accessToken, err := openField(key, envelope.Tokens.AccessTokenCipher)
	if err != nil {
		logging.Debug("TokenStore", "Cannot decrypt access token: %v", err)
		return nil
	}
	refreshToken, err := openField(key, envelope.Tokens.RefreshTokenCipher)
	if err != nil {
		logging.Debug("TokenStore", "Cannot decrypt refresh token: %v", err)
		return nil
	}
	if accessToken == "" {
		return nil
	}

	token := &pkgoauth.Token{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		RefreshToken: refreshToken,
		Scope:        envelope.Tokens.Scope,
	}
	if envelope.Tokens.ExpiresAt > 0 {
		token.ExpiresAt = time.Unix(envelope.Tokens.ExpiresAt, 0)
	}

	return token
}

// Clear deletes the credential file. A missing file is not an error.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}

	logging.Audit(logging.AuditEvent{
		Action:  "token_cleared",
		Outcome: "success",
		Target:  s.baseURL,
	})
	return nil
}

// IsAccessTokenExpired reports whether there is no usable record or the
// stored access token expires within pkgoauth.TokenRefreshThreshold.
func (s *TokenStore) IsAccessTokenExpired() bool {
	return s.Load().IsExpiredAt(s.now())
}

// cipherKey returns the key for the current machine identity, deriving it
// on first use. Must be called with s.mu held.
func (s *TokenStore) cipherKey() ([]byte, error) {
	identity, err := s.identity()
	if err != nil {
		return nil, err
	}
	if s.key != nil && s.keyIdentity == identity {
		return s.key, nil
	}

	key, err := deriveKey(identity)
	if err != nil {
		return nil, err
	}
	s.key = key
	s.keyIdentity = identity
	return key, nil
}

// writeFile writes data through a temp file and rename so readers never see
// a truncated envelope. Must be called with s.mu held.
func (s *TokenStore) writeFile(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.path)
}
