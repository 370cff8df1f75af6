package system

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"netident/internal/store"
)

// NMConnectionManager implements store.ConnectionManager on top of the OS
// network manager CLI. It lists saved connection profiles and can delete
// them by name.
type NMConnectionManager struct {
	runner Runner
}

// NewNMConnectionManager creates a connection manager backed by the given
// command runner.
// Returns a pointer to the newly created NMConnectionManager.
func NewNMConnectionManager(runner Runner) *NMConnectionManager {
	return &NMConnectionManager{
		runner: runner,
	}
}

// ListConnections returns all saved wireless connection profiles known to the
// OS. Wired and other non-wireless connections are skipped, as are rows whose
// details cannot be read.
func (m *NMConnectionManager) ListConnections() ([]store.OSConnection, error) {
	output, err := m.runner.Run("nmcli", "-t", "-f", "NAME,TYPE,TIMESTAMP", "connection", "show")
	if err != nil {
		return nil, &ProbeError{Probe: "connection-list", Err: err}
	}

	var connections []store.OSConnection
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := splitTerseLine(line)
		if len(fields) < 3 || fields[1] != "802-11-wireless" {
			continue
		}

		conn := store.OSConnection{Name: fields[0]}
		if ts, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
			conn.CreatedAt = time.Unix(ts, 0)
		}

		ssid, mode, err := m.connectionDetail(conn.Name)
		if err != nil {
			continue
		}
		conn.SSID = ssid
		conn.Mode = mode
		connections = append(connections, conn)
	}
	return connections, nil
}

// DeleteConnection removes a saved OS connection profile by name.
func (m *NMConnectionManager) DeleteConnection(name string) error {
	if _, err := m.runner.Run("nmcli", "connection", "delete", name); err != nil {
		return fmt.Errorf("failed to delete connection %s: %w", name, err)
	}
	return nil
}

// connectionDetail reads the SSID and wireless mode of one saved connection.
func (m *NMConnectionManager) connectionDetail(name string) (string, store.NetworkMode, error) {
	output, err := m.runner.Run("nmcli", "-t", "-f", "802-11-wireless.ssid,802-11-wireless.mode", "connection", "show", name)
	if err != nil {
		return "", "", &ProbeError{Probe: "connection-detail", Err: err}
	}

	var ssid string
	mode := store.ModeClient
	for _, line := range strings.Split(output, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		switch key {
		case "802-11-wireless.ssid":
			ssid = value
		case "802-11-wireless.mode":
			if value == "ap" {
				mode = store.ModeHotspot
			}
		}
	}
	return ssid, mode, nil
}
