// Package pingboard provides an embeddable reachability panel for a fixed set
// of network hosts.
//
// Every configured host gets its own monitor goroutine that probes it (ICMP
// echo by default), records the result and waits for the probe interval
// before probing again. The latest status of each host is kept in memory and
// served as a live web dashboard, a JSON API and a Server-Sent Events stream.
//
// # Quick Start
//
// Create hosts and start the board with graceful shutdown:
//
//	router, _ := pingboard.NewHost("Router", "192.168.0.1")
//	b, _ := pingboard.New(pingboard.WithHost(router))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	b.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// Board uses the functional options pattern:
//
//	b, err := pingboard.New(
//	    pingboard.WithHosts(router, nas),
//	    pingboard.WithProbeInterval(10 * time.Second),
//	    pingboard.WithProbeTimeout(500 * time.Millisecond),
//	    pingboard.WithProbeMethod("tcp"),
//	    pingboard.WithPort(9090),
//	)
//
// Hosts can carry labels, and whole ranges can be generated with
// [NewHostGrid]:
//
//	rack, err := pingboard.NewHostGrid("Rack",
//	    pingboard.WithAddressTemplate("10.0.{{.rack}}.{{.unit}}"),
//	    pingboard.WithDimensions(map[string][]string{
//	        "rack": {"1", "2"},
//	        "unit": {"10", "11", "12"},
//	    }),
//	)
//
// # Host States
//
// A host is in one of three states:
//
//   - [StateOnline]: the latest probe got a reply
//   - [StateOffline]: the latest probe got no reply within the timeout
//   - [StateUnknown]: no probe has completed yet, or the host's monitor
//     stopped after a failed status write
//
// An online host may have no latency ([HostStatus.LatencyKnown] false) when
// the prober could not measure one; the dashboard shows "N/A".
//
// # Probers
//
// The built-in probers are selected with [WithProbeMethod]: "icmp" (default),
// "exec" (the system ping command) and "tcp" (a TCP connect). Any other
// reachability test can be plugged in with [WithProber]; it is shared by all
// hosts and must be safe for concurrent use.
//
// # HTTP API
//
// The dashboard server exposes the following endpoints:
//
//   - GET /: the dashboard UI
//   - GET /api/status: JSON array of all hosts and their status
//   - GET /api/hosts/{address}: a single host
//   - GET /api/sse: Server-Sent Events stream for live updates
//   - GET /api/ws: the same stream over a WebSocket
//   - GET /healthz: 200 while every monitor runs, 503 otherwise
//
// Use [WithHeadless] to run the monitors without the server.
//
// # Thread Safety
//
// [Host] is immutable and safe for concurrent use. [Board.Status],
// [Board.Snapshot] and [Board.Halted] may be called from any goroutine while
// the board runs; they never wait for a probe.
package pingboard
