package store

import (
	"fmt"
	"sort"
	"time"
)

// OSConnection describes a connection profile held by the operating system's
// network manager. The OS store and this package's store can drift apart, so
// deduplication runs against both independently.
type OSConnection struct {
	Name      string      `json:"name"`       // Connection name in the OS store
	SSID      string      `json:"ssid"`       // Network name the connection targets
	Mode      NetworkMode `json:"mode"`       // client or hotspot
	CreatedAt time.Time   `json:"created_at"` // When the OS connection was created
}

// ConnectionManager abstracts the OS-level connection store. The real
// implementation shells out to the system network manager; tests supply fakes.
type ConnectionManager interface {
	// ListConnections returns all saved OS connection profiles.
	ListConnections() ([]OSConnection, error)
	// DeleteConnection removes a saved OS connection profile by name.
	DeleteConnection(name string) error
}

// DeduplicateConnections applies the same group-by-(ssid, mode), keep-newest
// algorithm as Store.Deduplicate to the OS connection store. Timestamp ties
// keep the lexicographically smallest name.
// Returns the names of the connections that were removed.
func DeduplicateConnections(mgr ConnectionManager) ([]string, error) {
	connections, err := mgr.ListConnections()
	if err != nil {
		return nil, fmt.Errorf("failed to list OS connections: %w", err)
	}

	groups := make(map[string][]OSConnection)
	for _, conn := range connections {
		key := conn.SSID + "\x00" + conn.Mode.String()
		groups[key] = append(groups[key], conn)
	}

	var removed []string
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		survivor := newestConnection(group)
		for _, conn := range group {
			if conn.Name == survivor {
				continue
			}
			if err := mgr.DeleteConnection(conn.Name); err != nil {
				return removed, fmt.Errorf("failed to delete duplicate connection %s: %w", conn.Name, err)
			}
			removed = append(removed, conn.Name)
		}
	}

	sort.Strings(removed)
	return removed, nil
}

func newestConnection(group []OSConnection) string {
	best := group[0]
	for _, conn := range group[1:] {
		switch {
		case conn.CreatedAt.After(best.CreatedAt):
			best = conn
		case conn.CreatedAt.Equal(best.CreatedAt) && conn.Name < best.Name:
			best = conn
		}
	}
	return best.Name
}
