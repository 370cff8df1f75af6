package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netident/internal/secrets"
	"netident/internal/store"
	"netident/internal/wireguard"
)

// noopRunner satisfies system.Runner for provisioners that never shell out.
type noopRunner struct{}

func (noopRunner) Run(name string, args ...string) (string, error) {
	return "", nil
}

// unreachableProber marks every address as free.
type unreachableProber struct{}

func (unreachableProber) Reachable(addr string) bool {
	return false
}

type fixture struct {
	manager *Manager
	cipher  *secrets.Cipher
	store   *store.Store
	tunnel  *wireguard.Provisioner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	cipher := secrets.NewWithKeyPath(filepath.Join(dir, "master.key"))
	profileStore := store.NewWithDir(filepath.Join(dir, "networks"))
	tunnel := wireguard.NewProvisionerWithConfig(noopRunner{}, unreachableProber{}, filepath.Join(dir, "wg0.conf"), "wg0")

	return &fixture{
		manager: NewManagerWithDir(cipher, profileStore, tunnel, filepath.Join(dir, "exports")),
		cipher:  cipher,
		store:   profileStore,
		tunnel:  tunnel,
	}
}

func TestManager_ExportImportProfiles(t *testing.T) {
	t.Run("should round-trip a password without leaking it to disk", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.Save("home", &store.NetworkProfile{
			SSID:     "HomeNet",
			Mode:     store.ModeClient,
			Password: "hunter2",
		})
		require.NoError(t, err)

		path, err := f.manager.ExportProfiles("")
		require.NoError(t, err)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "hunter2")

		// Wipe and restore.
		require.NoError(t, f.store.Delete("home"))
		result, err := f.manager.ImportProfiles(path)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.ImportedCount)
		assert.Empty(t, result.Errors)

		restored, err := f.store.Load("home")
		require.NoError(t, err)
		assert.Equal(t, "hunter2", restored.Password)
	})

	t.Run("should export open networks without a password", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.Save("open", &store.NetworkProfile{SSID: "OpenNet", Mode: store.ModeClient})
		require.NoError(t, err)

		path, err := f.manager.ExportProfiles("open.json")
		require.NoError(t, err)
		assert.Equal(t, "open.json", filepath.Base(path))

		result, err := f.manager.ImportProfiles(path)
		require.NoError(t, err)
		assert.Equal(t, 1, result.ImportedCount)
	})

	t.Run("should keep the encrypted token when one entry cannot be decrypted", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.Save("good", &store.NetworkProfile{SSID: "Good", Mode: store.ModeClient, Password: "okpass"})
		require.NoError(t, err)
		_, err = f.store.Save("bad", &store.NetworkProfile{SSID: "Bad", Mode: store.ModeClient, Password: "lostpass"})
		require.NoError(t, err)

		path, err := f.manager.ExportProfiles("")
		require.NoError(t, err)

		// Re-encrypt the bad entry with a different master key so decryption
		// fails on import.
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var envelope Envelope
		require.NoError(t, json.Unmarshal(raw, &envelope))

		foreign := secrets.NewWithKeyPath(filepath.Join(t.TempDir(), "other.key"))
		for i := range envelope.Networks {
			if envelope.Networks[i].ID == "bad" {
				token, err := foreign.Encrypt("lostpass")
				require.NoError(t, err)
				envelope.Networks[i].Config.Password = token
			}
		}
		rewritten, err := json.Marshal(envelope)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, rewritten, 0600))

		result, err := f.manager.ImportProfiles(path)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, 2, result.ImportedCount)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "bad")

		// The good entry decrypted; the bad one kept its token.
		good, err := f.store.Load("good")
		require.NoError(t, err)
		assert.Equal(t, "okpass", good.Password)

		bad, err := f.store.Load("bad")
		require.NoError(t, err)
		assert.NotEqual(t, "lostpass", bad.Password)
		assert.True(t, f.cipher.LooksEncrypted(bad.Password))
	})

	t.Run("should fail hard on unparsable JSON", func(t *testing.T) {
		f := newFixture(t)
		path := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := f.manager.ImportProfiles(path)
		assert.Error(t, err)
	})

	t.Run("should fail hard when the networks section is missing", func(t *testing.T) {
		f := newFixture(t)
		path := filepath.Join(t.TempDir(), "no-networks.json")
		envelope := Envelope{Version: EnvelopeVersion, Timestamp: time.Now()}
		data, err := json.Marshal(envelope)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0600))

		_, err = f.manager.ImportProfiles(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "networks")

		entries, err := f.store.List()
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("should generate a timestamped default filename", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.Save("x", &store.NetworkProfile{SSID: "X", Mode: store.ModeClient})
		require.NoError(t, err)

		path, err := f.manager.ExportProfiles("")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filepath.Base(path), "netident-backup-"))
		assert.True(t, strings.HasSuffix(path, ".json"))
	})
}

func provisionTunnel(t *testing.T, f *fixture) *wireguard.TunnelProfile {
	t.Helper()
	peer, err := wireguard.GenerateKeyPair()
	require.NoError(t, err)

	profile, err := f.tunnel.Setup(wireguard.SetupOptions{
		Endpoint:      "vpn.example.org:51820",
		PeerPublicKey: peer.PublicKey,
		AllowedIPs:    []string{"10.0.0.0/24"},
		DNS:           "1.1.1.1",
	})
	require.NoError(t, err)
	return profile
}

func TestManager_ExportImportTunnel(t *testing.T) {
	t.Run("should round-trip the tunnel with the private key encrypted at rest", func(t *testing.T) {
		f := newFixture(t)
		original := provisionTunnel(t, f)

		path, err := f.manager.ExportTunnel("")
		require.NoError(t, err)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), original.PrivateKey)

		var envelope Envelope
		require.NoError(t, json.Unmarshal(raw, &envelope))
		require.NotNil(t, envelope.WireGuard)
		assert.Equal(t, "wg0", envelope.WireGuard.ConnectionName)

		imported, err := f.manager.ImportTunnel(path)
		require.NoError(t, err)
		assert.Equal(t, original.PrivateKey, imported.PrivateKey)
		assert.Equal(t, original.PublicKey, imported.PublicKey)
		assert.Equal(t, original.Address, imported.Address)
		assert.Equal(t, original.Endpoint, imported.Endpoint)
	})

	t.Run("should fail without persisting on a missing private key", func(t *testing.T) {
		f := newFixture(t)
		peer, err := wireguard.GenerateKeyPair()
		require.NoError(t, err)

		text := "[Interface]\nAddress = 10.0.0.2/24\n\n[Peer]\nPublicKey = " + peer.PublicKey +
			"\nAllowedIPs = 10.0.0.0/24\nEndpoint = vpn.example.org:51820\n"
		envelope := Envelope{
			Version:   EnvelopeVersion,
			Timestamp: time.Now(),
			WireGuard: &TunnelEntry{Config: text, ConnectionName: "wg0"},
		}
		data, err := json.Marshal(envelope)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "tunnel.json")
		require.NoError(t, os.WriteFile(path, data, 0600))

		_, err = f.manager.ImportTunnel(path)
		var formatErr *wireguard.ConfigFormatError
		require.ErrorAs(t, err, &formatErr)
		assert.Equal(t, "PrivateKey", formatErr.Field)

		_, statErr := os.Stat(f.tunnel.ConfigPath())
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("should fail hard when the tunnel key cannot be decrypted", func(t *testing.T) {
		f := newFixture(t)
		provisionTunnel(t, f)

		path, err := f.manager.ExportTunnel("")
		require.NoError(t, err)

		foreignDir := t.TempDir()
		foreign := NewManagerWithDir(
			secrets.NewWithKeyPath(filepath.Join(foreignDir, "other.key")),
			store.NewWithDir(filepath.Join(foreignDir, "networks")),
			wireguard.NewProvisionerWithConfig(noopRunner{}, unreachableProber{}, filepath.Join(foreignDir, "wg0.conf"), "wg0"),
			filepath.Join(foreignDir, "exports"),
		)

		_, err = foreign.ImportTunnel(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "decrypt")

		_, statErr := os.Stat(filepath.Join(foreignDir, "wg0.conf"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("should fail when the envelope has no wireguard section", func(t *testing.T) {
		f := newFixture(t)
		path := filepath.Join(t.TempDir(), "empty.json")
		data, err := json.Marshal(Envelope{Version: EnvelopeVersion, Timestamp: time.Now()})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0600))

		_, err = f.manager.ImportTunnel(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "wireguard")
	})
}
