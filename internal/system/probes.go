package system

import (
	"errors"
	"strconv"
	"strings"
)

// DeviceRow is one line of the device/connection table probe. All fields are
// present for every row; absence of a relevant row, not an empty field, is
// what signals "no connection".
type DeviceRow struct {
	Device     string // Interface name (e.g. "wlan0")
	Type       string // Device type (e.g. "wifi", "ethernet")
	State      string // Connection state (e.g. "connected", "disconnected")
	Connection string // Active connection name, if any
}

// IsConnected reports whether the row describes an active connection.
func (r DeviceRow) IsConnected() bool {
	return strings.HasPrefix(r.State, "connected")
}

// WirelessInfo is the typed result of the wireless-detail probe. Every field
// is optional; a nil pointer means the probe did not report that value.
type WirelessInfo struct {
	Mode    *string // Interface mode: "managed" (station) or "AP"
	SSID    *string // Network name currently joined or served
	Channel *int    // Radio channel
	Signal  *int    // Signal strength in dBm, negative
}

// IPInfo is the typed result of the IP/gateway probe. Every field is
// optional; a nil pointer means the probe did not report that value.
type IPInfo struct {
	Address *string // IPv4 address with prefix (e.g. "192.168.1.10/24")
	Gateway *string // Default gateway address
}

// Prober runs the fixed set of OS network probes and parses their output.
// Each probe lives behind its own method so that a single failing collaborator
// degrades only the fields it would have supplied.
type Prober struct {
	runner Runner
}

// NewProber creates a Prober backed by the given command runner.
// Returns a pointer to the newly created Prober.
func NewProber(runner Runner) *Prober {
	return &Prober{
		runner: runner,
	}
}

// DeviceTable runs the device/connection table probe and parses its
// colon-separated terse rows (DEVICE:TYPE:STATE:CONNECTION).
// Returns a ProbeError if the command fails.
func (p *Prober) DeviceTable() ([]DeviceRow, error) {
	output, err := p.runner.Run("nmcli", "-t", "-f", "DEVICE,TYPE,STATE,CONNECTION", "device", "status")
	if err != nil {
		return nil, &ProbeError{Probe: "device-table", Err: err}
	}
	return ParseDeviceTable(output), nil
}

// WirelessDetail runs the wireless-detail probes for one interface. Mode,
// SSID and channel come from the interface-info command; signal strength is
// only printed by the separate link command, which is run as a second step.
// A failing link probe leaves Signal nil rather than failing the call.
// Returns a ProbeError if the interface-info command fails; unrecognized
// lines are ignored.
func (p *Prober) WirelessDetail(iface string) (*WirelessInfo, error) {
	output, err := p.runner.Run("iw", "dev", iface, "info")
	if err != nil {
		return nil, &ProbeError{Probe: "wireless-detail", Err: err}
	}
	info := ParseWirelessInfo(output)

	if linkOutput, err := p.runner.Run("iw", "dev", iface, "link"); err == nil {
		info.Signal = ParseLinkSignal(linkOutput)
	}
	return info, nil
}

// HardwareAddress runs the hardware-address lookup for one interface.
// Returns a ProbeError if the command fails or no address is reported.
func (p *Prober) HardwareAddress(iface string) (string, error) {
	output, err := p.runner.Run("nmcli", "-t", "-f", "GENERAL.HWADDR", "device", "show", iface)
	if err != nil {
		return "", &ProbeError{Probe: "hardware-address", Err: err}
	}
	mac := ParseHardwareAddress(output)
	if mac == "" {
		return "", &ProbeError{Probe: "hardware-address", Err: errNoValue}
	}
	return mac, nil
}

// IPGateway runs the IP/gateway lookup for one interface.
// Returns a ProbeError if the command fails.
func (p *Prober) IPGateway(iface string) (*IPInfo, error) {
	output, err := p.runner.Run("nmcli", "-t", "-f", "IP4.ADDRESS,IP4.GATEWAY", "device", "show", iface)
	if err != nil {
		return nil, &ProbeError{Probe: "ip-gateway", Err: err}
	}
	return ParseIPInfo(output), nil
}

var errNoValue = errors.New("no hardware address reported")

// ParseDeviceTable parses terse device-status output. Lines that do not have
// at least the DEVICE:TYPE:STATE columns are skipped.
func ParseDeviceTable(output string) []DeviceRow {
	var rows []DeviceRow
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := splitTerseLine(line)
		if len(fields) < 3 {
			continue
		}
		row := DeviceRow{
			Device: fields[0],
			Type:   fields[1],
			State:  fields[2],
		}
		if len(fields) > 3 {
			row.Connection = fields[3]
		}
		rows = append(rows, row)
	}
	return rows
}

// ParseWirelessInfo parses "key value" lines of the interface-info probe.
// Recognized keys are type, ssid and channel; everything else is ignored.
// Fields stay nil when their line is absent. Signal strength is not part of
// this output; see ParseLinkSignal.
func ParseWirelessInfo(output string) *WirelessInfo {
	info := &WirelessInfo{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, " ")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "type":
			info.Mode = &value
		case "ssid":
			info.SSID = &value
		case "channel":
			// "channel 6 (2437 MHz), width: ...", only the leading number matters.
			numeric := strings.Fields(value)
			if len(numeric) > 0 {
				if channel, err := strconv.Atoi(numeric[0]); err == nil {
					info.Channel = &channel
				}
			}
		}
	}
	return info
}

// ParseLinkSignal extracts the signal strength from the link probe's
// "signal: -54 dBm" line. Returns nil when the line is absent or the value
// is not numeric, which is also the case for a disconnected interface
// ("Not connected.").
func ParseLinkSignal(output string) *int {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		value, found := strings.CutPrefix(line, "signal:")
		if !found {
			continue
		}
		numeric := strings.Fields(value)
		if len(numeric) > 0 {
			if signal, err := strconv.Atoi(numeric[0]); err == nil {
				return &signal
			}
		}
	}
	return nil
}

// ParseHardwareAddress extracts the MAC from terse GENERAL.HWADDR output.
// Terse mode escapes the colons inside the address, which is undone here.
// Returns an empty string when no address line is present.
func ParseHardwareAddress(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "GENERAL.HWADDR:") {
			continue
		}
		value := strings.TrimPrefix(line, "GENERAL.HWADDR:")
		return strings.ReplaceAll(value, `\:`, ":")
	}
	return ""
}

// ParseIPInfo extracts the first IPv4 address and the gateway from terse
// device-show output. Fields stay nil when their line is absent or empty.
func ParseIPInfo(output string) *IPInfo {
	info := &IPInfo{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, ":")
		if !found || value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(key, "IP4.ADDRESS") && info.Address == nil:
			info.Address = &value
		case key == "IP4.GATEWAY":
			info.Gateway = &value
		}
	}
	return info
}

// splitTerseLine splits a colon-separated terse line while honoring the
// backslash escaping the tool applies to literal colons in values.
func splitTerseLine(line string) []string {
	var fields []string
	var current strings.Builder
	escaped := false
	for _, ch := range line {
		switch {
		case escaped:
			current.WriteRune(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == ':':
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	fields = append(fields, current.String())
	return fields
}
