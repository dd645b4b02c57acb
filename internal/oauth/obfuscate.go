package oauth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/user"

	"golang.org/x/crypto/scrypt"
)

// keySalt is a fixed, public salt. The key is only as secret as the
// machine identity it is derived from.
const keySalt = "platform-mcp/credentials/v1"

// scrypt parameters for key derivation (N, r, p) and AES-256 key length.
const (
	scryptN   = 1 << 15
	scryptR   = 8
	scryptP   = 1
	keyLength = 32
)

// IdentityFunc returns a stable string identifying the local machine and
// OS user. The credential key is derived from it.
type IdentityFunc func() (string, error)

// MachineIdentity is the default IdentityFunc: host name and OS user name.
func MachineIdentity() (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to read host name: %w", err)
	}

	username := os.Getenv("USER")
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	if username == "" {
		return "", errors.New("failed to determine OS user name")
	}

	return host + "/" + username, nil
}

// deriveKey turns a machine identity into an AES-256 key.
func deriveKey(identity string) ([]byte, error) {
	key, err := scrypt.Key([]byte(identity), []byte(keySalt), scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}

// sealField encrypts one credential field with AES-256-GCM under a fresh
// random nonce. The nonce is prepended and the result hex-encoded.
func sealField(key []byte, plaintext string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// openField reverses sealField. A wrong key or tampered ciphertext fails
// GCM authentication.
func openField(key []byte, encoded string) (string, error) {
	data, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return gcm, nil
}
