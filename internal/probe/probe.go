package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// DefaultTimeout bounds how long a single probe waits for a reply.
const DefaultTimeout = time.Second

// DefaultTCPPort is used by [TCPProber] when the address carries no port.
const DefaultTCPPort = 80

var (
	// ErrInvalidAddress is recorded when an address cannot be probed at all.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNoReply is recorded when a probe completed without an answer.
	ErrNoReply = errors.New("no reply")

	// ErrPortNotSupported is returned for an address with a port when the
	// method probes hosts rather than services.
	ErrPortNotSupported = errors.New("address port is only supported by the tcp method")
)

// Result is the outcome of one probe.
//
// Result is an immutable value. A reachable host may still have an unknown
// latency (LatencyKnown false), which is distinct from being unreachable.
type Result struct {
	// Reachable reports whether a reply arrived within the timeout.
	Reachable bool

	// Latency is the measured round-trip time. Only meaningful when
	// LatencyKnown is true.
	Latency time.Duration

	// LatencyKnown is false when no round-trip time could be extracted.
	LatencyKnown bool

	// CheckedAt is when the probe started.
	CheckedAt time.Time

	// Err describes why the host was considered unreachable. It is
	// diagnostic only and is never returned to callers as an error.
	Err error
}

// Prober performs one reachability test against an address.
//
// Implementations must be safe for concurrent use and must never panic or
// block longer than their configured timeout (plus the cost of honouring ctx).
type Prober interface {
	Probe(ctx context.Context, address string) Result
}

// Func adapts an ordinary function to the [Prober] interface.
type Func func(ctx context.Context, address string) Result

// Probe calls f(ctx, address).
func (f Func) Probe(ctx context.Context, address string) Result {
	return f(ctx, address)
}

// Holder is implemented by probers that keep an expensive resource (such as
// a raw socket) open between probes. Hold acquires it for the lifetime of a
// run; the returned release function gives it back.
type Holder interface {
	Hold() (release func(), err error)
}

// Method names a probe implementation.
type Method string

const (
	MethodICMP Method = "icmp"
	MethodExec Method = "exec"
	MethodTCP  Method = "tcp"
)

// ParseMethod converts a config string into a [Method].
// The empty string selects [MethodICMP].
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodICMP:
		return MethodICMP, nil
	case MethodExec:
		return MethodExec, nil
	case MethodTCP:
		return MethodTCP, nil
	default:
		return "", fmt.Errorf("unknown probe method %q (expected icmp, exec or tcp)", s)
	}
}

// Options selects and tunes a Prober built by [New].
type Options struct {
	Method  Method
	Timeout time.Duration

	// TCPPort is the port used by the tcp method for addresses without one.
	TCPPort int

	// Privileged forces raw (true) or datagram (false) ICMP sockets.
	// nil tries datagram sockets first and falls back to raw ones.
	Privileged *bool
}

// New builds the Prober described by opts, applying defaults for zero values.
func New(opts Options) (Prober, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.TCPPort == 0 {
		opts.TCPPort = DefaultTCPPort
	}

	method, err := ParseMethod(string(opts.Method))
	if err != nil {
		return nil, err
	}

	switch method {
	case MethodExec:
		return NewExecProber(opts.Timeout), nil
	case MethodTCP:
		return NewTCPProber(opts.Timeout, opts.TCPPort), nil
	default:
		return NewICMPProber(opts.Timeout, opts.Privileged), nil
	}
}

// unreachable builds the collapsed failure result.
func unreachable(checkedAt time.Time, err error) Result {
	return Result{
		Reachable: false,
		CheckedAt: checkedAt,
		Err:       err,
	}
}

// CheckAddress validates address with [ValidateAddress] and also rejects a
// port unless m is [MethodTCP].
func (m Method) CheckAddress(address string) error {
	if err := ValidateAddress(address); err != nil {
		return err
	}
	if m != MethodTCP && hasPort(address) {
		return fmt.Errorf("%w: %q", ErrPortNotSupported, address)
	}
	return nil
}

func hasPort(address string) bool {
	_, _, err := net.SplitHostPort(address)
	return err == nil
}

// ValidateAddress rejects addresses that cannot name a host. A leading dash is
// refused so that addresses are never mistaken for command-line flags.
func ValidateAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.HasPrefix(address, "-") {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if strings.ContainsAny(address, " \t\r\n") {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidAddress, address)
	}
	return nil
}
