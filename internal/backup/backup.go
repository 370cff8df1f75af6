// Package backup provides the export/import pipeline for portable encrypted
// backups. It composes the credential cipher, the profile store and the
// tunnel provisioner to produce versioned envelope files whose secret fields
// are encrypted, and to restore them with per-entry failure isolation.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"netident/internal/secrets"
	"netident/internal/store"
	"netident/internal/wireguard"
)

// EnvelopeVersion is the current version of the export envelope format.
const EnvelopeVersion = 1

// Envelope is the versioned wrapper written to every export file. It is the
// only entity serialized to a shareable file; both sections are optional so
// network-only and tunnel-only exports share one shape.
type Envelope struct {
	Version   int            `json:"version"`             // Envelope format version
	Timestamp time.Time      `json:"timestamp"`           // When the export was produced
	Networks  []NetworkEntry `json:"networks,omitempty"`  // Saved network profiles, passwords encrypted
	WireGuard *TunnelEntry   `json:"wireguard,omitempty"` // Tunnel configuration, private key encrypted
}

// NetworkEntry pairs a profile id with its exported configuration.
type NetworkEntry struct {
	ID     string               `json:"id"`     // Store identifier of the profile
	Config store.NetworkProfile `json:"config"` // Profile with the password field encrypted
}

// TunnelEntry carries the rendered tunnel configuration text with the
// private key replaced by an encrypted token.
type TunnelEntry struct {
	Config         string `json:"config"`         // Tunnel config text block
	ConnectionName string `json:"connectionName"` // Tunnel interface name
}

// ImportResult reports the outcome of a batch profile import. A non-empty
// Errors list alongside a positive ImportedCount signals a partial import:
// one bad entry never blocks the others.
type ImportResult struct {
	Success       bool     `json:"success"`        // True when every entry imported cleanly
	ImportedCount int      `json:"imported_count"` // Number of profiles persisted
	Errors        []string `json:"errors"`         // Per-entry failure descriptions
}

// Manager drives exports and imports. It owns the export directory and
// delegates encryption, persistence and tunnel handling to its collaborators.
type Manager struct {
	cipher    *secrets.Cipher
	store     *store.Store
	tunnel    *wireguard.Provisioner
	exportDir string
}

// NewManager creates a Manager writing to the default export directory under
// the current user's home (~/.netident/exports).
// Returns a pointer to the newly created Manager.
func NewManager(cipher *secrets.Cipher, profileStore *store.Store, tunnel *wireguard.Provisioner) *Manager {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Manager{
		cipher:    cipher,
		store:     profileStore,
		tunnel:    tunnel,
		exportDir: filepath.Join(home, ".netident", "exports"),
	}
}

// NewManagerWithDir creates a Manager writing to a custom export directory.
// This is useful for testing or non-standard deployments.
// Returns a pointer to the newly created Manager.
func NewManagerWithDir(cipher *secrets.Cipher, profileStore *store.Store, tunnel *wireguard.Provisioner, exportDir string) *Manager {
	return &Manager{
		cipher:    cipher,
		store:     profileStore,
		tunnel:    tunnel,
		exportDir: exportDir,
	}
}

// ExportDir returns the directory export files are written to.
func (m *Manager) ExportDir() string {
	return m.exportDir
}

// ExportProfiles reads all saved network profiles, encrypts each present
// password, and writes them inside an envelope to the export directory.
// When filename is empty a timestamped name is generated.
// Returns the path of the written file.
func (m *Manager) ExportProfiles(filename string) (string, error) {
	entries, err := m.store.List()
	if err != nil {
		return "", fmt.Errorf("failed to list profiles: %w", err)
	}

	envelope := Envelope{
		Version:   EnvelopeVersion,
		Timestamp: time.Now().UTC(),
		Networks:  []NetworkEntry{},
	}
	for _, entry := range entries {
		config := entry.Profile
		if config.Password != "" && !m.cipher.LooksEncrypted(config.Password) {
			token, err := m.cipher.Encrypt(config.Password)
			if err != nil {
				return "", fmt.Errorf("failed to encrypt password for %s: %w", entry.ID, err)
			}
			config.Password = token
		}
		envelope.Networks = append(envelope.Networks, NetworkEntry{ID: entry.ID, Config: config})
	}

	return m.writeEnvelope(envelope, filename)
}

// ImportProfiles parses an envelope file and persists its network profiles.
//
// Entries whose encrypted password fails to decrypt are still persisted with
// the encrypted token in place and the failure is recorded, so one bad entry
// never blocks the batch. A malformed envelope (unparsable JSON or a missing
// networks section) is a hard failure with zero imports.
func (m *Manager) ImportProfiles(path string) (*ImportResult, error) {
	envelope, err := m.readEnvelope(path)
	if err != nil {
		return nil, err
	}
	if envelope.Networks == nil {
		return nil, fmt.Errorf("envelope has no networks section")
	}

	result := &ImportResult{Errors: []string{}}
	for _, entry := range envelope.Networks {
		config := entry.Config
		if m.cipher.LooksEncrypted(config.Password) {
			plaintext, err := m.cipher.Decrypt(config.Password)
			if err != nil {
				// Keep the encrypted token rather than dropping the profile.
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.ID, err))
			} else {
				config.Password = plaintext
			}
		}

		if _, err := m.store.Overwrite(entry.ID, &config); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.ID, err))
			continue
		}
		result.ImportedCount++
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// ExportTunnel reads the provisioned tunnel configuration, encrypts its
// private key, and writes the resulting text inside an envelope.
// When filename is empty a timestamped name is generated.
// Returns the path of the written file.
func (m *Manager) ExportTunnel(filename string) (string, error) {
	profile, err := m.tunnel.ReadConfig()
	if err != nil {
		return "", fmt.Errorf("failed to read tunnel config: %w", err)
	}

	token, err := m.cipher.Encrypt(profile.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt tunnel private key: %w", err)
	}
	exported := *profile
	exported.PrivateKey = token

	envelope := Envelope{
		Version:   EnvelopeVersion,
		Timestamp: time.Now().UTC(),
		WireGuard: &TunnelEntry{
			Config:         exported.Render(),
			ConnectionName: m.tunnel.Interface(),
		},
	}
	return m.writeEnvelope(envelope, filename)
}

// ImportTunnel parses an envelope file, decrypts the tunnel private key, and
// persists the tunnel configuration. Unlike the profile batch, the tunnel is
// all-or-nothing: a missing mandatory field or a failed decryption leaves no
// partial tunnel state behind.
// Returns the imported profile.
func (m *Manager) ImportTunnel(path string) (*wireguard.TunnelProfile, error) {
	envelope, err := m.readEnvelope(path)
	if err != nil {
		return nil, err
	}
	if envelope.WireGuard == nil {
		return nil, fmt.Errorf("envelope has no wireguard section")
	}

	text, err := m.decryptPrivateKeyLine(envelope.WireGuard.Config)
	if err != nil {
		return nil, err
	}

	profile, err := wireguard.ParseTunnelConfig(text)
	if err != nil {
		return nil, err
	}

	if err := m.tunnel.WriteConfig(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// decryptPrivateKeyLine finds the PrivateKey line of a tunnel config text and
// replaces an encrypted token with its decrypted value. A plaintext key is
// passed through untouched so unencrypted legacy exports remain importable.
func (m *Manager) decryptPrivateKeyLine(text string) (string, error) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "PrivateKey" {
			continue
		}
		value := strings.TrimSpace(parts[1])
		if !m.cipher.LooksEncrypted(value) {
			return text, nil
		}
		plaintext, err := m.cipher.Decrypt(value)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt tunnel private key: %w", err)
		}
		lines[i] = "PrivateKey = " + plaintext
		return strings.Join(lines, "\n"), nil
	}
	return text, nil
}

func (m *Manager) writeEnvelope(envelope Envelope, filename string) (string, error) {
	if err := os.MkdirAll(m.exportDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if filename == "" {
		filename = fmt.Sprintf("netident-backup-%s.json", envelope.Timestamp.Format("20060102-150405"))
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode envelope: %w", err)
	}

	path := filepath.Join(m.exportDir, filename)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func (m *Manager) readEnvelope(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}

	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	return &envelope, nil
}
