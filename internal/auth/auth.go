// Package auth provides authentication for the management API.
// The device has a single administrator whose password is stored as a bcrypt
// hash; successful logins are exchanged for JWT tokens validated by the
// middleware on every protected route.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Manager handles administrator authentication: password hashing and
// verification plus JWT token management.
type Manager struct {
	jwtSecret   string        // Secret key for JWT token signing and verification
	tokenExpiry time.Duration // Duration for which tokens remain valid
	hashPath    string        // Path to the bcrypt hash of the admin password
}

// Claims represents the JWT claims issued to the authenticated administrator.
type Claims struct {
	jwt.RegisteredClaims
}

// NewManager creates an authentication manager with the default token expiry
// of 24 hours and the default hash location (~/.netident/admin.hash).
// Returns a pointer to the newly created Manager.
func NewManager(jwtSecret string) *Manager {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Manager{
		jwtSecret:   jwtSecret,
		tokenExpiry: 24 * time.Hour,
		hashPath:    filepath.Join(home, ".netident", "admin.hash"),
	}
}

// NewManagerWithConfig creates an authentication manager with a custom token
// expiry and hash location. This is useful for testing or non-standard
// deployments.
// Returns a pointer to the newly created Manager.
func NewManagerWithConfig(jwtSecret string, tokenExpiry time.Duration, hashPath string) *Manager {
	return &Manager{
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
		hashPath:    hashPath,
	}
}

// SetPassword hashes the administrator password with bcrypt and persists it
// with owner-only permissions, replacing any previous password.
func (m *Manager) SetPassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.hashPath), 0700); err != nil {
		return fmt.Errorf("failed to create auth directory: %w", err)
	}
	if err := os.WriteFile(m.hashPath, hash, 0600); err != nil {
		return fmt.Errorf("failed to persist password hash: %w", err)
	}
	return nil
}

// HasPassword reports whether an administrator password has been set.
func (m *Manager) HasPassword() bool {
	_, err := os.Stat(m.hashPath)
	return err == nil
}

// Login verifies the administrator password and issues a JWT token.
// Returns an error when no password has been set or the password is wrong.
func (m *Manager) Login(password string) (string, error) {
	hash, err := os.ReadFile(m.hashPath)
	if err != nil {
		return "", fmt.Errorf("no administrator password set")
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return "", fmt.Errorf("invalid password")
	}
	return m.generateToken()
}

// ValidateToken parses and validates a JWT token string.
// It verifies the token signature, expiration, and other standard claims.
// Returns the parsed claims if the token is valid, or an error if validation fails.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token claims")
}

// RefreshToken generates a new token based on a valid existing token,
// extending the session without re-entering the password.
// Returns a new JWT token string or an error if the original token is invalid.
func (m *Manager) RefreshToken(tokenString string) (string, error) {
	if _, err := m.ValidateToken(tokenString); err != nil {
		return "", fmt.Errorf("cannot refresh invalid token: %w", err)
	}
	return m.generateToken()
}

func (m *Manager) generateToken() (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "netident",
			Subject:   "admin",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// GenerateSecureSecret creates a cryptographically secure random secret for
// JWT signing. It generates 32 bytes of random data encoded as base64.
// Returns a base64-encoded secret string or an error if random generation fails.
func GenerateSecureSecret() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate secure secret: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
