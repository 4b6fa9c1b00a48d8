package pingboard

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/pingboard/internal/probe"
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title           string
	hosts           []Host
	probeInterval   time.Duration
	probeTimeout    time.Duration
	probeMethod     probe.Method
	tcpPort         int
	privileged      *bool
	prober          Prober
	port            int
	headless        bool
	logger          *slog.Logger
	statusCallbacks []func(HostStatus)
}

// Option is a function that configures a [Board] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*boardConfig) error

// WithHost adds a single [Host] to the board.
//
// Can be called multiple times. Hosts are displayed in the order they are
// added. At least one host must be configured for [New] to succeed.
func WithHost(h Host) Option {
	return func(cfg *boardConfig) error {
		cfg.hosts = append(cfg.hosts, h)
		return nil
	}
}

// WithHosts adds multiple [Host] values to the board, in order.
//
// Equivalent to calling [WithHost] for each host. Combines naturally with
// [NewHostGrid]:
//
//	rack, _ := pingboard.NewHostGrid("Rack", ...)
//	b, err := pingboard.New(pingboard.WithHosts(rack...))
func WithHosts(hosts ...Host) Option {
	return func(cfg *boardConfig) error {
		cfg.hosts = append(cfg.hosts, hosts...)
		return nil
	}
}

// WithProbeInterval sets the pause between a host's status update and its
// next probe.
//
// The interval is measured from the end of the previous update, so a slow
// host is probed less often than a fast one, and never twice at once.
// Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithProbeInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("probe interval must be positive")
		}
		cfg.probeInterval = d
		return nil
	}
}

// WithProbeTimeout sets how long a single probe waits for a reply.
// Defaults to 1 second. With [WithProber] it becomes the deadline of the
// context passed to the custom prober.
//
// Returns an error if the duration is zero or negative.
func WithProbeTimeout(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("probe timeout must be positive")
		}
		cfg.probeTimeout = d
		return nil
	}
}

// WithProbeMethod selects the built-in prober:
//
//   - "icmp" (default): ICMP echo, unprivileged where the OS allows it
//   - "exec": runs the system ping command once per probe
//   - "tcp": TCP connect to the host's port (see [WithTCPPort])
//
// Returns an error for any other value.
func WithProbeMethod(method string) Option {
	return func(cfg *boardConfig) error {
		m, err := probe.ParseMethod(method)
		if err != nil {
			return err
		}
		cfg.probeMethod = m
		return nil
	}
}

// WithTCPPort sets the port dialled by the tcp method for hosts whose
// address has no port. Defaults to 80.
//
// Returns an error if the port is outside 1-65535.
func WithTCPPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("tcp port must be between 1 and 65535")
		}
		cfg.tcpPort = port
		return nil
	}
}

// WithPrivileged forces raw (true) or datagram (false) ICMP sockets.
// Without it, datagram sockets are tried first and raw sockets are the
// fallback.
func WithPrivileged(privileged bool) Option {
	return func(cfg *boardConfig) error {
		cfg.privileged = &privileged
		return nil
	}
}

// WithProber replaces the built-in probers with p.
//
// p is shared by all hosts and must be safe for concurrent use. Each call
// gets a context that expires after the probe timeout (see
// [WithProbeTimeout]); p must return once it is done, or its host stalls and
// shutdown waits for it. [WithProbeMethod], [WithTCPPort] and
// [WithPrivileged] have no effect when a custom prober is set, and addresses
// are not checked against a probe method.
//
// Returns an error if p is nil.
func WithProber(p Prober) Option {
	return func(cfg *boardConfig) error {
		if p == nil {
			return errors.New("prober cannot be nil")
		}
		cfg.prober = p
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// The dashboard UI and API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithHeadless runs the monitors without the HTTP server. Statuses remain
// available through [Board.Snapshot], [Board.Status] and status callbacks.
func WithHeadless() Option {
	return func(cfg *boardConfig) error {
		cfg.headless = true
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Board.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStatusCallback registers a function to be called after every status
// update, once the new status is visible through [Board.Status].
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks run on the host's monitor goroutine and must be
// non-blocking. A blocking callback delays that host's next probe.
// Callbacks for different hosts may run concurrently.
//
// Panics within callbacks are recovered and logged; they do not stop the
// monitor.
//
// Example:
//
//	b, err := pingboard.New(
//	    pingboard.WithHost(router),
//	    pingboard.WithStatusCallback(func(s pingboard.HostStatus) {
//	        if s.State == pingboard.StateOffline {
//	            log.Printf("%s is offline", s.Name)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithStatusCallback(cb func(HostStatus)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return nil
		}
		cfg.statusCallbacks = append(cfg.statusCallbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "Pingboard".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}
