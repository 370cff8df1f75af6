package network

import (
	"fmt"
	"net"
)

// FindFreeAddress selects an address for this device inside the given IPv4
// CIDR block. Starting at the block's first host address, each candidate is
// probed with a short reachability check; the first candidate that does not
// respond is selected and returned with the block's prefix length attached
// (e.g. "10.0.0.6/24").
//
// This is best-effort, not authoritative: there is no lease registry, and two
// setups racing against the same subnet can pick the same address. That is an
// accepted limitation of a single-user tool.
// Returns an error when the CIDR is invalid, not IPv4, or every host in the
// block responds.
func FindFreeAddress(cidr string, prober ReachabilityProber) (string, error) {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return "", fmt.Errorf("invalid CIDR: %w", err)
	}
	if ipNet.IP.To4() == nil {
		return "", fmt.Errorf("IPv6 not supported")
	}

	ones, _ := ipNet.Mask.Size()
	networkAddr := ipNet.IP.Mask(ipNet.Mask)

	broadcastAddr := make(net.IP, len(networkAddr))
	copy(broadcastAddr, networkAddr)
	for i := range broadcastAddr {
		broadcastAddr[i] |= ^ipNet.Mask[i]
	}

	// The Contains check bounds the walk for blocks too small to have host
	// addresses (/31, /32), where the first candidate already sits outside
	// the block and would otherwise never meet the broadcast address.
	for candidate := incrementIP(networkAddr, 1); ipNet.Contains(candidate) && !candidate.Equal(broadcastAddr); candidate = incrementIP(candidate, 1) {
		if !prober.Reachable(candidate.String()) {
			return fmt.Sprintf("%s/%d", candidate.String(), ones), nil
		}
	}

	return "", fmt.Errorf("no free address found in %s", cidr)
}

// incrementIP increments an IP address by the given amount.
// This helper performs arithmetic on IP addresses, properly handling
// byte overflow across octets.
// Returns a new IP address that is 'inc' positions higher than the input.
func incrementIP(ip net.IP, inc int) net.IP {
	result := make(net.IP, len(ip))
	copy(result, ip)

	for i := len(result) - 1; i >= 0 && inc > 0; i-- {
		val := int(result[i]) + inc
		result[i] = byte(val & 0xFF)
		inc = val >> 8
	}

	return result
}
