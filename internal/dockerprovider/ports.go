package dockerprovider

import (
	"fmt"
	"net"

	"github.com/opensandbox/control-plane/internal/sandboxerr"
)

// allocatedPorts holds the two host ports bridge-mode bind-maps to
// container ports 44772 (execd proxy) and 8080 (http).
type allocatedPorts struct {
	embeddingProxy int
	http           int
}

// allocateBridgePorts allocates two distinct host ports in
// [PortRangeLow, PortRangeHigh] by binding then releasing a TCP listener,
// up to PortAllocTries attempts per port.
//
// This is a known TOCTOU race (the port can be taken by another process
// between release and the daemon's own bind): accepted as current
// behavior per the upstream implementation; a tighter alternative would
// let the daemon allocate and read the mapping back afterward.
func (p *Provider) allocateBridgePorts() (allocatedPorts, error) {
	first, err := p.allocateOnePort(nil)
	if err != nil {
		return allocatedPorts{}, err
	}
	second, err := p.allocateOnePort(&first)
	if err != nil {
		return allocatedPorts{}, err
	}
	return allocatedPorts{embeddingProxy: first, http: second}, nil
}

func (p *Provider) allocateOnePort(exclude *int) (int, error) {
	low, high := p.cfg.PortRangeLow, p.cfg.PortRangeHigh
	tries := p.cfg.PortAllocTries
	span := high - low + 1

	for i := 0; i < tries; i++ {
		candidate := low + portSeed(i)%span
		if exclude != nil && candidate == *exclude {
			continue
		}
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", candidate))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return candidate, nil
	}
	return 0, sandboxerr.New(sandboxerr.ContainerStartFailed, "failed to allocate a host port in [%d,%d] after %d attempts", low, high, tries)
}

// portSeed spreads attempts across the range deterministically rather
// than scanning sequentially from the bottom (avoids every allocation
// racing for the same first few ports under concurrent sandbox
// creation).
func portSeed(i int) int {
	// A simple odd-stride walk; does not need cryptographic randomness,
	// just enough spread to avoid contention hot-spots.
	return i * 7919
}
