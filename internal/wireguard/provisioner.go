package wireguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"netident/internal/network"
	"netident/internal/system"
)

// Setup stages, used to tag SetupError so failures always name the step that
// broke. There is no partial success: any failed stage fails the whole setup.
const (
	StageValidate = "validate"
	StageKeygen   = "keygen"
	StageAllocate = "allocate"
	StageWrite    = "write"
	StageActivate = "activate"
)

// SetupError indicates that tunnel provisioning failed, tagged with the
// failing stage.
type SetupError struct {
	Stage string // One of the Stage* constants
	Err   error  // Underlying failure
}

// Error implements the error interface for SetupError.
func (e *SetupError) Error() string {
	return fmt.Sprintf("tunnel setup failed at stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *SetupError) Unwrap() error {
	return e.Err
}

// TeardownError indicates that the tunnel interface could not be removed.
type TeardownError struct {
	Err error
}

// Error implements the error interface for TeardownError.
func (e *TeardownError) Error() string {
	return fmt.Sprintf("tunnel teardown failed: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *TeardownError) Unwrap() error {
	return e.Err
}

// SetupOptions carries the caller-supplied parameters for Setup.
type SetupOptions struct {
	Endpoint            string   // Remote peer endpoint in "host:port" form (required)
	PeerPublicKey       string   // Remote peer public key (required)
	AllowedIPs          []string // CIDR blocks to route; the first is also the allocation pool (required)
	DNS                 string   // DNS server for the tunnel (optional)
	ListenPort          int      // UDP listen port (optional)
	PrivateKey          string   // Existing private key to reuse; empty generates a fresh pair
	PersistentKeepalive int      // Keepalive interval in seconds (optional)
}

// TunnelStatus is the ephemeral state of the tunnel, derived from the tunnel
// status probe on each call and never persisted.
type TunnelStatus struct {
	Active        bool   `json:"active"`                   // Whether the tunnel interface exists
	PublicKey     string `json:"public_key,omitempty"`     // Device public key as reported by the probe
	PeerPublicKey string `json:"peer_public_key,omitempty"` // Remote peer public key
	Endpoint      string `json:"endpoint,omitempty"`       // Remote peer endpoint
	Received      string `json:"received,omitempty"`       // Bytes received, as reported (e.g. "1.21 MiB")
	Sent          string `json:"sent,omitempty"`           // Bytes sent, as reported
	LastHandshake string `json:"last_handshake,omitempty"` // Time since last handshake, as reported
}

// Provisioner manages the lifecycle of the device's single tunnel interface.
// It renders configuration to a fixed privileged file and drives the
// OS-managed tunnel service through external commands.
type Provisioner struct {
	runner     system.Runner              // Executes tunnel service and probe commands
	prober     network.ReachabilityProber // Probes candidate addresses during allocation
	configPath string                     // Privileged tunnel config file path
	iface      string                     // Tunnel interface name (e.g. "wg0")
}

// NewProvisioner creates a Provisioner with the standard configuration path
// (/etc/wireguard/wg0.conf) and interface name.
// Returns a pointer to the newly created Provisioner.
func NewProvisioner(runner system.Runner, prober network.ReachabilityProber) *Provisioner {
	return &Provisioner{
		runner:     runner,
		prober:     prober,
		configPath: "/etc/wireguard/wg0.conf",
		iface:      "wg0",
	}
}

// NewProvisionerWithConfig creates a Provisioner with a custom configuration
// path and interface name. This is useful for testing or non-standard
// deployments.
// Returns a pointer to the newly created Provisioner.
func NewProvisionerWithConfig(runner system.Runner, prober network.ReachabilityProber, configPath, iface string) *Provisioner {
	return &Provisioner{
		runner:     runner,
		prober:     prober,
		configPath: configPath,
		iface:      iface,
	}
}

// ConfigPath returns the path of the tunnel configuration file.
func (p *Provisioner) ConfigPath() string {
	return p.configPath
}

// Interface returns the tunnel interface name.
func (p *Provisioner) Interface() string {
	return p.iface
}

// Setup provisions the tunnel end to end: key material, address allocation
// inside the first AllowedIPs block, configuration rendering to the
// privileged config file, and (re)activation of the tunnel service.
// Any failure is returned as a SetupError naming the failing stage; no
// partial state counts as success.
func (p *Provisioner) Setup(opts SetupOptions) (*TunnelProfile, error) {
	if err := validateSetupOptions(opts); err != nil {
		return nil, &SetupError{Stage: StageValidate, Err: err}
	}

	keys, err := p.resolveKeys(opts.PrivateKey)
	if err != nil {
		return nil, &SetupError{Stage: StageKeygen, Err: err}
	}

	address, err := network.FindFreeAddress(opts.AllowedIPs[0], p.prober)
	if err != nil {
		return nil, &SetupError{Stage: StageAllocate, Err: err}
	}

	profile := &TunnelProfile{
		PrivateKey:          keys.PrivateKey,
		PublicKey:           keys.PublicKey,
		Address:             address,
		DNS:                 opts.DNS,
		ListenPort:          opts.ListenPort,
		PeerPublicKey:       opts.PeerPublicKey,
		Endpoint:            opts.Endpoint,
		AllowedIPs:          opts.AllowedIPs,
		PersistentKeepalive: opts.PersistentKeepalive,
	}

	if err := p.WriteConfig(profile); err != nil {
		return nil, &SetupError{Stage: StageWrite, Err: err}
	}

	if err := p.activateService(); err != nil {
		return nil, &SetupError{Stage: StageActivate, Err: err}
	}

	return profile, nil
}

// WriteConfig renders the profile and persists it to the privileged config
// file with owner-only permissions, creating the directory if needed.
func (p *Provisioner) WriteConfig(profile *TunnelProfile) error {
	if err := os.MkdirAll(filepath.Dir(p.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(p.configPath, []byte(profile.Render()), 0600); err != nil {
		return fmt.Errorf("failed to write tunnel config: %w", err)
	}
	return nil
}

// ReadConfig loads and parses the persisted tunnel configuration.
// Returns os.ErrNotExist wrapped when no tunnel has been provisioned.
func (p *Provisioner) ReadConfig() (*TunnelProfile, error) {
	data, err := os.ReadFile(p.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tunnel config: %w", err)
	}
	return ParseTunnelConfig(string(data))
}

// Status invokes the tunnel status probe and parses its loosely structured
// key:value output. Recognized keys populate the status; unrecognized lines
// are ignored. A failing probe or empty output means the tunnel is down,
// which is a valid status, not an error.
func (p *Provisioner) Status() (*TunnelStatus, error) {
	output, err := p.runner.Run("wg", "show", p.iface)
	if err != nil || strings.TrimSpace(output) == "" {
		return &TunnelStatus{Active: false}, nil
	}
	return ParseTunnelStatus(output), nil
}

// Stop tears the tunnel down idempotently. If the tunnel service is active it
// is stopped and disabled; otherwise the interface is removed directly,
// tolerating "does not exist". A final verification force-removes a lingering
// interface and only a provably stuck interface yields a TeardownError.
func (p *Provisioner) Stop() error {
	service := fmt.Sprintf("wg-quick@%s", p.iface)

	if _, err := p.runner.Run("systemctl", "is-active", "--quiet", service); err == nil {
		if out, err := p.runner.Run("systemctl", "disable", "--now", service); err != nil {
			return &TeardownError{Err: fmt.Errorf("failed to stop tunnel service: %v: %s", err, out)}
		}
	} else {
		out, err := p.runner.Run("ip", "link", "delete", p.iface)
		if err != nil && !isMissingInterface(out) {
			return &TeardownError{Err: fmt.Errorf("failed to remove interface: %v: %s", err, out)}
		}
	}

	// Verify the interface is gone; force removal if something re-created it.
	if _, err := p.runner.Run("ip", "link", "show", p.iface); err == nil {
		if out, err := p.runner.Run("ip", "link", "delete", p.iface); err != nil && !isMissingInterface(out) {
			return &TeardownError{Err: fmt.Errorf("interface still present after teardown: %v: %s", err, out)}
		}
	}

	return nil
}

// IsActive reports whether the tunnel interface currently exists.
func (p *Provisioner) IsActive() bool {
	status, err := p.Status()
	if err != nil {
		return false
	}
	return status.Active
}

// ParseTunnelStatus parses the status probe's key:value text. Absent keys
// leave their fields empty; the presence of any output at all marks the
// tunnel active.
func ParseTunnelStatus(output string) *TunnelStatus {
	status := &TunnelStatus{Active: true}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "public key":
			status.PublicKey = value
		case "peer":
			status.PeerPublicKey = value
		case "endpoint":
			status.Endpoint = value
		case "latest handshake":
			status.LastHandshake = value
		case "transfer":
			received, sent, found := strings.Cut(value, ",")
			if !found {
				continue
			}
			status.Received = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(received), "received"))
			status.Sent = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sent), "sent"))
		}
	}

	return status
}

func (p *Provisioner) resolveKeys(privateKey string) (*KeyPair, error) {
	if privateKey == "" {
		return GenerateKeyPair()
	}
	return DeriveKeyPair(privateKey)
}

func (p *Provisioner) activateService() error {
	service := fmt.Sprintf("wg-quick@%s", p.iface)
	if out, err := p.runner.Run("systemctl", "enable", service); err != nil {
		return fmt.Errorf("failed to enable tunnel service: %v: %s", err, out)
	}
	if out, err := p.runner.Run("systemctl", "restart", service); err != nil {
		return fmt.Errorf("failed to restart tunnel service: %v: %s", err, out)
	}
	return nil
}

func validateSetupOptions(opts SetupOptions) error {
	if opts.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if opts.PeerPublicKey == "" {
		return fmt.Errorf("peer public key cannot be empty")
	}
	if len(opts.AllowedIPs) == 0 {
		return fmt.Errorf("at least one allowed IPs block is required")
	}
	return nil
}

// isMissingInterface recognizes the benign "interface already gone" outputs
// of the link removal command.
func isMissingInterface(output string) bool {
	return strings.Contains(output, "does not exist") ||
		strings.Contains(output, "Cannot find device") ||
		strings.Contains(output, "No such device")
}
