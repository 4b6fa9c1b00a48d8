package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

// TCPProber treats a successful TCP connect as a reply.
type TCPProber struct {
	timeout time.Duration
	port    string
	dialer  net.Dialer
}

// NewTCPProber creates a [TCPProber]. port is used for addresses that do not
// carry their own.
func NewTCPProber(timeout time.Duration, port int) *TCPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if port <= 0 {
		port = DefaultTCPPort
	}
	return &TCPProber{
		timeout: timeout,
		port:    strconv.Itoa(port),
	}
}

// Probe connects to address and closes the connection immediately.
func (p *TCPProber) Probe(ctx context.Context, address string) Result {
	checkedAt := time.Now()

	if err := ValidateAddress(address); err != nil {
		return unreachable(checkedAt, err)
	}

	target := address
	if _, _, err := net.SplitHostPort(address); err != nil {
		target = net.JoinHostPort(address, p.port)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dialer.DialContext(ctx, "tcp", target)
	latency := time.Since(start)
	if err != nil {
		return unreachable(checkedAt, err)
	}
	_ = conn.Close()

	return Result{
		Reachable:    true,
		Latency:      latency,
		LatencyKnown: true,
		CheckedAt:    checkedAt,
	}
}
