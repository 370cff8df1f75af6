package wireguard

import (
	"fmt"
	"strconv"
	"strings"
)

// TunnelProfile represents the complete configuration of the device's single
// tunnel: this device's keys and address in the [Interface] section and the
// remote peer in the [Peer] section. PublicKey is always this device's key,
// derived from PrivateKey; PeerPublicKey identifies the remote endpoint.
type TunnelProfile struct {
	PrivateKey          string   // Base64-encoded device private key
	PublicKey           string   // Base64-encoded device public key, derived
	Address             string   // Device tunnel address with prefix (e.g. "10.0.0.6/24")
	DNS                 string   // DNS server for the tunnel (optional)
	ListenPort          int      // UDP listen port (optional, 0 = unset)
	PeerPublicKey       string   // Base64-encoded public key of the remote peer
	Endpoint            string   // Remote peer endpoint in "host:port" form
	AllowedIPs          []string // CIDR blocks routed through the tunnel
	PersistentKeepalive int      // Keepalive interval in seconds (optional, 0 = unset)
}

// ConfigFormatError indicates that a tunnel configuration text block is
// missing a mandatory field or carries an unusable value for one.
type ConfigFormatError struct {
	Field string // Name of the offending field
}

// Error implements the error interface for ConfigFormatError.
func (e *ConfigFormatError) Error() string {
	return fmt.Sprintf("tunnel config missing or invalid field: %s", e.Field)
}

// Render produces the canonical tunnel configuration text block for this
// profile, with the [Interface] section first and the [Peer] section second.
// Optional fields are omitted when unset.
func (p *TunnelProfile) Render() string {
	var config strings.Builder

	config.WriteString("[Interface]\n")
	config.WriteString(fmt.Sprintf("PrivateKey = %s\n", p.PrivateKey))
	config.WriteString(fmt.Sprintf("Address = %s\n", p.Address))
	if p.DNS != "" {
		config.WriteString(fmt.Sprintf("DNS = %s\n", p.DNS))
	}
	if p.ListenPort > 0 {
		config.WriteString(fmt.Sprintf("ListenPort = %d\n", p.ListenPort))
	}

	config.WriteString("\n[Peer]\n")
	config.WriteString(fmt.Sprintf("PublicKey = %s\n", p.PeerPublicKey))
	config.WriteString(fmt.Sprintf("AllowedIPs = %s\n", strings.Join(p.AllowedIPs, ", ")))
	config.WriteString(fmt.Sprintf("Endpoint = %s\n", p.Endpoint))
	if p.PersistentKeepalive > 0 {
		config.WriteString(fmt.Sprintf("PersistentKeepalive = %d\n", p.PersistentKeepalive))
	}

	return config.String()
}

// ParseTunnelConfig parses a canonical [Interface]/[Peer] text block back into
// a TunnelProfile. Unrecognized keys and comments are ignored. The device
// public key is re-derived from the parsed private key.
//
// Mandatory fields are PrivateKey, Address, the peer PublicKey, Endpoint and
// AllowedIPs; a missing or undecodable one yields a ConfigFormatError and no
// partial profile.
func ParseTunnelConfig(text string) (*TunnelProfile, error) {
	profile := &TunnelProfile{}
	section := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.Trim(line, "[]"))
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch section {
		case "interface":
			switch key {
			case "PrivateKey":
				profile.PrivateKey = value
			case "Address":
				profile.Address = value
			case "DNS":
				profile.DNS = value
			case "ListenPort":
				if port, err := strconv.Atoi(value); err == nil {
					profile.ListenPort = port
				}
			}
		case "peer":
			switch key {
			case "PublicKey":
				profile.PeerPublicKey = value
			case "Endpoint":
				profile.Endpoint = value
			case "AllowedIPs":
				for _, cidr := range strings.Split(value, ",") {
					if cidr = strings.TrimSpace(cidr); cidr != "" {
						profile.AllowedIPs = append(profile.AllowedIPs, cidr)
					}
				}
			case "PersistentKeepalive":
				if keepalive, err := strconv.Atoi(value); err == nil {
					profile.PersistentKeepalive = keepalive
				}
			}
		}
	}

	switch {
	case profile.PrivateKey == "":
		return nil, &ConfigFormatError{Field: "PrivateKey"}
	case profile.Address == "":
		return nil, &ConfigFormatError{Field: "Address"}
	case profile.PeerPublicKey == "":
		return nil, &ConfigFormatError{Field: "PublicKey"}
	case profile.Endpoint == "":
		return nil, &ConfigFormatError{Field: "Endpoint"}
	case len(profile.AllowedIPs) == 0:
		return nil, &ConfigFormatError{Field: "AllowedIPs"}
	}

	keys, err := DeriveKeyPair(profile.PrivateKey)
	if err != nil {
		return nil, &ConfigFormatError{Field: "PrivateKey"}
	}
	profile.PublicKey = keys.PublicKey

	return profile, nil
}
