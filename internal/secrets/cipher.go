// Package secrets provides reversible encryption for credential material at rest.
// It protects Wi-Fi passwords and tunnel private keys stored on disk or carried
// inside exported backups, using a per-device master key and authenticated
// symmetric encryption with per-call key derivation.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MasterKeySize is the length in bytes of the device master key.
	MasterKeySize = 32
	// SaltSize is the length in bytes of the per-encryption salt.
	SaltSize = 64
	// IVSize is the length in bytes of the AES-GCM nonce.
	IVSize = 16
	// TagSize is the length in bytes of the GCM authentication tag.
	TagSize = 16
	// PBKDF2Iterations is the iteration count for per-call subkey derivation.
	// The slow derivation raises the cost of brute-forcing a leaked master key.
	PBKDF2Iterations = 100000

	tokenSegments = 4
)

// DecryptionError indicates that a token could not be decrypted, either
// because it is structurally malformed or because authentication failed.
// It never reveals partial plaintext.
type DecryptionError struct {
	Reason string
}

// Error implements the error interface for DecryptionError.
func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed: %s", e.Reason)
}

// Cipher encrypts and decrypts secret strings using a lazily initialized
// per-device master key. Each encryption draws a fresh salt and IV and derives
// a one-time subkey, so two encryptions of the same plaintext never coincide.
// A Cipher is safe for concurrent use.
type Cipher struct {
	keyPath   string    // Path to the master key file
	masterKey []byte    // Cached master key bytes, populated on first use
	initOnce  sync.Once // Guards master key materialization
	initErr   error     // Error captured during master key materialization
}

// New creates a Cipher using the default master key location under the
// current user's home directory (~/.netident/master.key).
// The key file is not touched until the first Encrypt or Decrypt call.
// Returns a pointer to the newly created Cipher.
func New() *Cipher {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Cipher{
		keyPath: filepath.Join(home, ".netident", "master.key"),
	}
}

// NewWithKeyPath creates a Cipher that stores its master key at a custom path.
// This is useful for testing or non-standard deployments.
// Returns a pointer to the newly created Cipher.
func NewWithKeyPath(keyPath string) *Cipher {
	return &Cipher{
		keyPath: keyPath,
	}
}

// Encrypt encrypts a plaintext secret and returns an opaque token composed of
// four colon-separated base64 segments: IV, salt, authentication tag, and
// ciphertext. The token is self-describing; the algorithm and iteration count
// are fixed constants of this package.
// Returns the token or an error if key material cannot be obtained.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	masterKey, err := c.loadMasterKey()
	if err != nil {
		return "", fmt.Errorf("failed to load master key: %w", err)
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	gcm, err := newGCM(masterKey, salt)
	if err != nil {
		return "", err
	}

	// Seal appends the tag to the ciphertext; split it back out so the token
	// carries the tag as its own segment.
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	segments := []string{
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}
	return strings.Join(segments, ":"), nil
}

// Decrypt reverses Encrypt. It returns a DecryptionError when the token does
// not have exactly four base64 segments or when the authentication tag does
// not match, which covers both tampering and decryption with a different
// master key than the one that produced the token.
func (c *Cipher) Decrypt(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != tokenSegments {
		return "", &DecryptionError{Reason: fmt.Sprintf("expected %d segments, got %d", tokenSegments, len(parts))}
	}

	decoded := make([][]byte, tokenSegments)
	for i, part := range parts {
		raw, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return "", &DecryptionError{Reason: fmt.Sprintf("segment %d is not valid base64", i+1)}
		}
		decoded[i] = raw
	}

	iv, salt, tag, ciphertext := decoded[0], decoded[1], decoded[2], decoded[3]
	if len(iv) != IVSize || len(tag) != TagSize {
		return "", &DecryptionError{Reason: "unexpected IV or tag length"}
	}

	masterKey, err := c.loadMasterKey()
	if err != nil {
		return "", fmt.Errorf("failed to load master key: %w", err)
	}

	gcm, err := newGCM(masterKey, salt)
	if err != nil {
		return "", err
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed"}
	}

	return string(plaintext), nil
}

// LooksEncrypted reports whether a string has the structural shape of a token
// produced by Encrypt: exactly four colon-separated segments, each valid
// base64. This is a heuristic, not a cryptographic guarantee: plaintext that
// happens to match the shape is indistinguishable from a real token. Callers
// use it only to decide whether a Decrypt attempt is worthwhile.
func (c *Cipher) LooksEncrypted(token string) bool {
	parts := strings.Split(token, ":")
	if len(parts) != tokenSegments {
		return false
	}
	for _, part := range parts {
		if _, err := base64.StdEncoding.DecodeString(part); err != nil {
			return false
		}
	}
	return true
}

// KeyPath returns the path of the master key file backing this Cipher.
func (c *Cipher) KeyPath() string {
	return c.keyPath
}

// loadMasterKey materializes the master key exactly once per Cipher.
// If the key file exists it is read and validated; otherwise a fresh random
// key is generated and persisted with owner-only permissions. Losing this file
// makes all previously produced tokens permanently unrecoverable.
func (c *Cipher) loadMasterKey() ([]byte, error) {
	c.initOnce.Do(func() {
		key, err := os.ReadFile(c.keyPath)
		if err == nil {
			if len(key) != MasterKeySize {
				c.initErr = fmt.Errorf("master key file %s has %d bytes, expected %d", c.keyPath, len(key), MasterKeySize)
				return
			}
			c.masterKey = key
			return
		}
		if !os.IsNotExist(err) {
			c.initErr = fmt.Errorf("failed to read master key file: %w", err)
			return
		}

		key = make([]byte, MasterKeySize)
		if _, err := rand.Read(key); err != nil {
			c.initErr = fmt.Errorf("failed to generate master key: %w", err)
			return
		}
		if err := os.MkdirAll(filepath.Dir(c.keyPath), 0700); err != nil {
			c.initErr = fmt.Errorf("failed to create master key directory: %w", err)
			return
		}
		if err := os.WriteFile(c.keyPath, key, 0600); err != nil {
			c.initErr = fmt.Errorf("failed to persist master key: %w", err)
			return
		}
		c.masterKey = key
	})

	if c.initErr != nil {
		return nil, c.initErr
	}
	return c.masterKey, nil
}

// newGCM derives a one-time subkey from the master key and salt and returns
// an AEAD instance configured for this package's IV size.
func newGCM(masterKey, salt []byte) (cipher.AEAD, error) {
	subkey := pbkdf2.Key(masterKey, salt, PBKDF2Iterations, MasterKeySize, sha256.New)

	block, err := aes.NewCipher(subkey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	return gcm, nil
}
