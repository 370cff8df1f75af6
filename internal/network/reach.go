// Package network provides address selection and network state aggregation.
// It owns the reachability probe used both for internet-connectivity checks
// and for scanning a tunnel subnet for a free address, and it reconciles the
// partial outputs of several independent OS probes into one unified status.
package network

import (
	"netident/internal/system"
)

// ReachabilityProber answers whether a host responds within a short, fixed
// timeout. Implementations must treat the timeout as a bound on the probe,
// not as proof of absence; the result is a liveness heuristic.
type ReachabilityProber interface {
	Reachable(addr string) bool
}

// PingProber probes reachability with a single ICMP echo request.
type PingProber struct {
	runner system.Runner
}

// NewPingProber creates a PingProber backed by the given command runner.
// Returns a pointer to the newly created PingProber.
func NewPingProber(runner system.Runner) *PingProber {
	return &PingProber{
		runner: runner,
	}
}

// Reachable sends one echo request with a two second deadline and reports
// whether the host answered.
func (p *PingProber) Reachable(addr string) bool {
	_, err := p.runner.Run("ping", "-c", "1", "-W", "2", addr)
	return err == nil
}
