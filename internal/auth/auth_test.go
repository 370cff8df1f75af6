package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	hashPath := filepath.Join(t.TempDir(), "admin.hash")
	return NewManagerWithConfig("test-secret", 24*time.Hour, hashPath)
}

func TestNewManager(t *testing.T) {
	t.Run("should create manager with default settings", func(t *testing.T) {
		manager := NewManager("test-secret")

		assert.NotNil(t, manager)
		assert.Equal(t, "test-secret", manager.jwtSecret)
		assert.Equal(t, 24*time.Hour, manager.tokenExpiry)
	})

	t.Run("should create manager with custom settings", func(t *testing.T) {
		expiry := 2 * time.Hour
		manager := NewManagerWithConfig("custom-secret", expiry, "/tmp/hash")

		assert.NotNil(t, manager)
		assert.Equal(t, "custom-secret", manager.jwtSecret)
		assert.Equal(t, expiry, manager.tokenExpiry)
		assert.Equal(t, "/tmp/hash", manager.hashPath)
	})
}

func TestManager_SetPassword(t *testing.T) {
	t.Run("should persist bcrypt hash with owner-only permissions", func(t *testing.T) {
		manager := newTestManager(t)

		err := manager.SetPassword("correct horse battery staple")
		require.NoError(t, err)

		info, err := os.Stat(manager.hashPath)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		data, err := os.ReadFile(manager.hashPath)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "correct horse battery staple")
	})

	t.Run("should reject empty password", func(t *testing.T) {
		manager := newTestManager(t)

		err := manager.SetPassword("")

		assert.Error(t, err)
		assert.False(t, manager.HasPassword())
	})

	t.Run("should replace previous password", func(t *testing.T) {
		manager := newTestManager(t)

		require.NoError(t, manager.SetPassword("first"))
		require.NoError(t, manager.SetPassword("second"))

		_, err := manager.Login("first")
		assert.Error(t, err)

		_, err = manager.Login("second")
		assert.NoError(t, err)
	})
}

func TestManager_HasPassword(t *testing.T) {
	t.Run("should report false before a password is set", func(t *testing.T) {
		manager := newTestManager(t)
		assert.False(t, manager.HasPassword())
	})

	t.Run("should report true after a password is set", func(t *testing.T) {
		manager := newTestManager(t)
		require.NoError(t, manager.SetPassword("secret"))
		assert.True(t, manager.HasPassword())
	})
}

func TestManager_Login(t *testing.T) {
	t.Run("should issue a valid token for the correct password", func(t *testing.T) {
		manager := newTestManager(t)
		require.NoError(t, manager.SetPassword("secret"))

		token, err := manager.Login("secret")

		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := manager.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "netident", claims.Issuer)
		assert.Equal(t, "admin", claims.Subject)
	})

	t.Run("should reject wrong password", func(t *testing.T) {
		manager := newTestManager(t)
		require.NoError(t, manager.SetPassword("secret"))

		_, err := manager.Login("wrong")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid password")
	})

	t.Run("should fail when no password has been set", func(t *testing.T) {
		manager := newTestManager(t)

		_, err := manager.Login("anything")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no administrator password set")
	})
}

func TestManager_ValidateToken(t *testing.T) {
	t.Run("should reject token signed with a different secret", func(t *testing.T) {
		manager := newTestManager(t)
		require.NoError(t, manager.SetPassword("secret"))
		token, err := manager.Login("secret")
		require.NoError(t, err)

		other := NewManagerWithConfig("other-secret", 24*time.Hour, manager.hashPath)
		_, err = other.ValidateToken(token)

		assert.Error(t, err)
	})

	t.Run("should reject malformed token", func(t *testing.T) {
		manager := newTestManager(t)

		_, err := manager.ValidateToken("not.a.token")

		assert.Error(t, err)
	})

	t.Run("should reject expired token", func(t *testing.T) {
		hashPath := filepath.Join(t.TempDir(), "admin.hash")
		manager := NewManagerWithConfig("test-secret", -time.Hour, hashPath)
		require.NoError(t, manager.SetPassword("secret"))

		token, err := manager.Login("secret")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestManager_RefreshToken(t *testing.T) {
	t.Run("should issue a new token from a valid token", func(t *testing.T) {
		manager := newTestManager(t)
		require.NoError(t, manager.SetPassword("secret"))
		token, err := manager.Login("secret")
		require.NoError(t, err)

		refreshed, err := manager.RefreshToken(token)

		require.NoError(t, err)
		assert.NotEmpty(t, refreshed)

		_, err = manager.ValidateToken(refreshed)
		assert.NoError(t, err)
	})

	t.Run("should refuse to refresh an invalid token", func(t *testing.T) {
		manager := newTestManager(t)

		_, err := manager.RefreshToken("garbage")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot refresh invalid token")
	})
}

func TestGenerateSecureSecret(t *testing.T) {
	t.Run("should generate distinct non-empty secrets", func(t *testing.T) {
		first, err := GenerateSecureSecret()
		require.NoError(t, err)
		assert.NotEmpty(t, first)

		second, err := GenerateSecureSecret()
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}
