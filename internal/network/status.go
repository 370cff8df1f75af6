package network

import (
	"netident/internal/system"
)

// Connection modes reported by the aggregator, in resolution priority order:
// wireless station, access point, wired, disconnected, with "unknown" as the
// fallback when a connection exists but classifies as none of these.
const (
	ModeWifi         = "wifi"
	ModeHotspot      = "hotspot"
	ModeEthernet     = "ethernet"
	ModeDisconnected = "disconnected"
	ModeUnknown      = "unknown"
)

// UnifiedStatus is the reconciled view of the device's network state, built
// from several independent probes that do not share a key space. Fields a
// probe could not supply are left at their zero value (or nil for pointers)
// rather than failing the whole status call.
type UnifiedStatus struct {
	Connected         bool   `json:"connected"`                    // Whether any connection is active
	Mode              string `json:"mode"`                         // wifi, hotspot, ethernet, disconnected or unknown
	Interface         string `json:"interface,omitempty"`          // Active interface name
	Connection        string `json:"connection,omitempty"`         // Active connection name
	SSID              string `json:"ssid,omitempty"`               // Wireless network name (wireless modes only)
	Channel           *int   `json:"channel,omitempty"`            // Radio channel (wireless modes only)
	Signal            *int   `json:"signal,omitempty"`             // Signal strength in dBm (wireless modes only)
	MAC               string `json:"mac,omitempty"`                // Hardware address of the active interface
	IP                string `json:"ip,omitempty"`                 // IPv4 address with prefix
	Gateway           string `json:"gateway,omitempty"`            // Default gateway
	InternetReachable *bool  `json:"internet_reachable,omitempty"` // Result of the internet reachability probe, when run
}

// Aggregator collects the output of the OS network probes into a
// UnifiedStatus. Probes run in a fixed sequence because later probes depend
// on the interface name resolved by the device table.
type Aggregator struct {
	prober       *system.Prober
	reach        ReachabilityProber // Optional internet-connectivity probe
	internetAddr string
}

// NewAggregator creates an Aggregator over the given prober.
// Returns a pointer to the newly created Aggregator.
func NewAggregator(prober *system.Prober) *Aggregator {
	return &Aggregator{
		prober: prober,
	}
}

// NewAggregatorWithInternetCheck creates an Aggregator that additionally
// probes reachability of a well-known address to report internet health.
// Returns a pointer to the newly created Aggregator.
func NewAggregatorWithInternetCheck(prober *system.Prober, reach ReachabilityProber, addr string) *Aggregator {
	return &Aggregator{
		prober:       prober,
		reach:        reach,
		internetAddr: addr,
	}
}

// GetStatus reconciles the probe outputs into one UnifiedStatus.
//
// The device/connection table runs first; if it fails or contains no
// connected row the call short-circuits to a disconnected status. Every later
// probe failure degrades only the fields that probe would have supplied.
func (a *Aggregator) GetStatus() UnifiedStatus {
	rows, err := a.prober.DeviceTable()
	if err != nil {
		return UnifiedStatus{Connected: false, Mode: ModeDisconnected}
	}

	row, ok := pickActiveRow(rows)
	if !ok {
		return UnifiedStatus{Connected: false, Mode: ModeDisconnected}
	}

	status := UnifiedStatus{
		Connected:  true,
		Interface:  row.Device,
		Connection: row.Connection,
	}

	switch row.Type {
	case "wifi":
		status.Mode = ModeWifi
		a.fillWireless(&status, row)
	case "ethernet":
		status.Mode = ModeEthernet
	default:
		status.Mode = ModeUnknown
	}

	if mac, err := a.prober.HardwareAddress(row.Device); err == nil {
		status.MAC = mac
	}

	if ipInfo, err := a.prober.IPGateway(row.Device); err == nil {
		if ipInfo.Address != nil {
			status.IP = *ipInfo.Address
		}
		if ipInfo.Gateway != nil {
			status.Gateway = *ipInfo.Gateway
		}
	}

	if a.reach != nil {
		reachable := a.reach.Reachable(a.internetAddr)
		status.InternetReachable = &reachable
	}

	return status
}

// fillWireless merges the wireless-detail probe into the status. A failing
// probe leaves the wireless fields absent and the mode at the station
// default.
func (a *Aggregator) fillWireless(status *UnifiedStatus, row system.DeviceRow) {
	info, err := a.prober.WirelessDetail(row.Device)
	if err != nil {
		return
	}
	if info.Mode != nil && *info.Mode == "AP" {
		status.Mode = ModeHotspot
	}
	if info.SSID != nil {
		status.SSID = *info.SSID
	} else if row.Connection != "" {
		status.SSID = row.Connection
	}
	status.Channel = info.Channel
	status.Signal = info.Signal
}

// pickActiveRow selects the row describing the device's primary connection.
// Wireless rows win over wired ones, mirroring the mode resolution order.
func pickActiveRow(rows []system.DeviceRow) (system.DeviceRow, bool) {
	var fallback system.DeviceRow
	var haveFallback bool
	for _, row := range rows {
		if !row.IsConnected() || row.Type == "loopback" {
			continue
		}
		if row.Type == "wifi" {
			return row, true
		}
		if !haveFallback {
			fallback = row
			haveFallback = true
		}
	}
	return fallback, haveFallback
}
