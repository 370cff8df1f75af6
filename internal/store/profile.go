// Package store provides the persistence layer for saved network profiles.
// Each profile is kept as its own JSON file inside a configuration directory,
// with collision-safe identifier generation and deduplication of profiles that
// describe the same network.
package store

import (
	"time"
)

// NetworkMode distinguishes the two roles a saved network can play.
type NetworkMode string

const (
	// ModeClient joins an existing Wi-Fi network as a station.
	ModeClient NetworkMode = "client"
	// ModeHotspot runs the device as an access point.
	ModeHotspot NetworkMode = "hotspot"
)

// IsValid checks whether the network mode is one of the known values.
func (m NetworkMode) IsValid() bool {
	return m == ModeClient || m == ModeHotspot
}

// String returns the string representation of the mode.
func (m NetworkMode) String() string {
	return string(m)
}

// CustomDNS represents an optional per-profile DNS override.
type CustomDNS struct {
	Enabled bool     `json:"enabled"`           // Whether the override is active
	Servers []string `json:"servers,omitempty"` // DNS server addresses to use
}

// DeviceAuth represents optional MAC-based access control for hotspot profiles.
// The actual enforcement lives outside this system; the store only persists
// the allow list alongside the profile.
type DeviceAuth struct {
	Enabled     bool     `json:"enabled"`                // Whether MAC filtering is active
	AllowedMACs []string `json:"allowed_macs,omitempty"` // Hardware addresses permitted to join
}

// NetworkProfile represents a saved Wi-Fi or hotspot configuration.
// Profiles are owned exclusively by the Store and are mutated only through
// its Save and Delete operations. The Password field may hold either the
// plaintext secret or an encrypted token, depending on where the profile
// travels; the store itself treats it as an opaque string.
type NetworkProfile struct {
	SSID          string      `json:"ssid"`                     // Network name
	Mode          NetworkMode `json:"mode"`                     // client or hotspot
	Password      string      `json:"password,omitempty"`       // Secret, optional for open networks
	Hidden        bool        `json:"hidden,omitempty"`         // Whether the SSID is hidden
	Interface     string      `json:"interface,omitempty"`      // Wireless interface name (e.g. "wlan0")
	DNS           string      `json:"dns,omitempty"`            // Legacy single DNS entry
	CreatedAt     time.Time   `json:"created_at"`               // When the profile was first saved
	LastUsedAt    time.Time   `json:"last_used_at,omitempty"`   // When the profile was last activated
	VPNEnabled    bool        `json:"vpn_enabled,omitempty"`    // Whether the tunnel comes up with this network
	CaptivePortal bool        `json:"captive_portal,omitempty"` // Whether a captive portal was detected
	CustomDNS     CustomDNS   `json:"custom_dns,omitempty"`     // Optional DNS override
	DeviceAuth    DeviceAuth  `json:"device_auth,omitempty"`    // Optional MAC allow list
}

// Entry pairs a stored profile with its identifier.
type Entry struct {
	ID      string         `json:"id"`      // Unique slug identifying the profile file
	Profile NetworkProfile `json:"profile"` // The profile contents
}
