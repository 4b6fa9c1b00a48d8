package pingboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jpalmerr/pingboard/dashboard"
	"github.com/jpalmerr/pingboard/internal/poller"
	"github.com/jpalmerr/pingboard/internal/probe"
	"github.com/jpalmerr/pingboard/internal/registry"
	"github.com/jpalmerr/pingboard/internal/server"
)

const (
	defaultProbeInterval = 5 * time.Second
	defaultProbeTimeout  = probe.DefaultTimeout
	defaultPort          = 8080
)

var (
	// ErrUnknownHost is returned by [Board.Status] for an address that is not
	// configured.
	ErrUnknownHost = registry.ErrUnknownHost

	// ErrAlreadyStarted is returned by [Board.Start] on a Board that has
	// already been started. A Board runs once.
	ErrAlreadyStarted = errors.New("board already started")
)

// Board is the main orchestrator for host probing and dashboard serving.
//
// Board runs one independent probe loop per host, keeps the latest status of
// each host and serves a live dashboard via HTTP. It is created using [New]
// with functional options and started with [Board.Start].
//
// The typical lifecycle is:
//
//	b, err := pingboard.New(pingboard.WithHost(h))
//	if err != nil {
//	    slog.Error("failed to create board", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until context cancelled
//
// Status reads ([Board.Status], [Board.Snapshot]) are safe at any time,
// from any goroutine, and never wait for a probe.
type Board struct {
	title           string
	hosts           []Host
	probeInterval   time.Duration
	prober          probe.Prober
	port            int
	headless        bool
	logger          *slog.Logger
	statusCallbacks []func(HostStatus)

	registry *registry.Registry

	mu        sync.Mutex
	started   bool
	scheduler *poller.Scheduler
}

// New creates a new [Board] with the given options.
//
// At least one host must be configured via [WithHost] or [WithHosts].
// Other options have sensible defaults:
//   - Probe interval: 5 seconds
//   - Probe timeout: 1 second
//   - Probe method: icmp
//   - Port: 8080
//
// Returns an error if no hosts are configured, two hosts share a name or an
// address, an address carries a port while the probe method is not tcp, or
// any option is invalid.
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		hosts:         []Host{},
		probeInterval: defaultProbeInterval,
		probeTimeout:  defaultProbeTimeout,
		probeMethod:   probe.MethodICMP,
		tcpPort:       probe.DefaultTCPPort,
		port:          defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.hosts) == 0 {
		return nil, errors.New("at least one host is required")
	}

	names := make(map[string]bool, len(cfg.hosts))
	for _, h := range cfg.hosts {
		if names[h.name] {
			return nil, fmt.Errorf("duplicate host name: %q", h.name)
		}
		names[h.name] = true
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	reg, err := registry.New(toRegistryHosts(cfg.hosts))
	if err != nil {
		return nil, err
	}

	var p probe.Prober
	if cfg.prober != nil {
		p = adaptProber(cfg.prober, cfg.probeTimeout)
	} else {
		for _, h := range cfg.hosts {
			if err := cfg.probeMethod.CheckAddress(h.address); err != nil {
				return nil, fmt.Errorf("host %q: %w", h.name, err)
			}
		}
		p, err = probe.New(probe.Options{
			Method:     cfg.probeMethod,
			Timeout:    cfg.probeTimeout,
			TCPPort:    cfg.tcpPort,
			Privileged: cfg.privileged,
		})
		if err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		title:           cfg.title,
		hosts:           cfg.hosts,
		probeInterval:   cfg.probeInterval,
		prober:          p,
		port:            cfg.port,
		headless:        cfg.headless,
		logger:          logger,
		statusCallbacks: cfg.statusCallbacks,
		registry:        reg,
	}, nil
}

// Start begins probing hosts and serving the dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - Every host is probed immediately, then again one interval after each
//     status update, each host on its own goroutine
//   - The HTTP server starts on the configured port (unless headless)
//   - The dashboard is available at http://localhost:<port>
//
// On cancellation in-flight probes are abandoned and their results dropped;
// Start returns once every monitor has stopped.
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server or
// the prober fails to start, or if the Board was already started.
func (b *Board) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	b.mu.Unlock()

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	b.logger.Info("pingboard starting", "host_count", len(b.hosts))
	b.logger.Info("probing configured", "interval", b.probeInterval.String())

	release, err := holdProber(b.prober)
	if err != nil {
		return fmt.Errorf("failed to start prober: %w", err)
	}
	defer release()

	scheduler := poller.NewScheduler(toRegistryHosts(b.hosts), b.prober, b.writer(b.registry), b.probeInterval, b.logger)

	b.mu.Lock()
	b.scheduler = scheduler
	b.mu.Unlock()

	if !b.headless {
		httpServer := server.NewServer(b.registry, b.port, dashboard.Assets, b.title, healthOf(scheduler), b.logger)
		if err := httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))
	}

	scheduler.Start(ctx)

	<-ctx.Done()
	scheduler.Stop()
	b.registry.Close()
	b.logger.Info("pingboard stopped")
	return nil
}

// Check probes every host once, concurrently, and returns the results in
// configuration order. It does not need [Board.Start] and does not touch the
// statuses served by a running Board.
func (b *Board) Check(ctx context.Context) ([]HostStatus, error) {
	reg, err := registry.New(toRegistryHosts(b.hosts))
	if err != nil {
		return nil, err
	}

	release, err := holdProber(b.prober)
	if err != nil {
		return nil, fmt.Errorf("failed to start prober: %w", err)
	}
	defer release()

	scheduler := poller.NewScheduler(toRegistryHosts(b.hosts), b.prober, b.writer(reg), b.probeInterval, b.logger)
	scheduler.RunOnce(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return toHostStatuses(reg.Snapshot()), nil
}

// Status returns the latest status of the host with the given address.
//
// Before the host's first probe completes the status is [StateUnknown] with
// no latency. Returns [ErrUnknownHost] for addresses that are not configured.
func (b *Board) Status(address string) (HostStatus, error) {
	entry, err := b.registry.Entry(address)
	if err != nil {
		return HostStatus{}, err
	}
	return toHostStatus(entry), nil
}

// Snapshot returns the status of every host in configuration order.
func (b *Board) Snapshot() []HostStatus {
	return toHostStatuses(b.registry.Snapshot())
}

// Halted returns the hosts whose monitor stopped because a status write
// failed, keyed by address. Such hosts show [StateUnknown].
func (b *Board) Halted() map[string]error {
	b.mu.Lock()
	scheduler := b.scheduler
	b.mu.Unlock()

	if scheduler == nil {
		return map[string]error{}
	}
	return scheduler.Halted()
}

// Hosts returns a copy of the configured hosts.
func (b *Board) Hosts() []Host {
	cp := make([]Host, len(b.hosts))
	copy(cp, b.hosts)
	return cp
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Board) Port() int {
	return b.port
}

// ProbeInterval returns the configured pause between probes of one host.
func (b *Board) ProbeInterval() time.Duration {
	return b.probeInterval
}

// writer returns reg, wrapped to invoke status callbacks when any are set.
func (b *Board) writer(reg *registry.Registry) poller.StatusWriter {
	if len(b.statusCallbacks) == 0 {
		return reg
	}
	return &notifyingWriter{registry: reg, callbacks: b.statusCallbacks, logger: b.logger}
}

// notifyingWriter invokes status callbacks after each accepted write.
type notifyingWriter struct {
	registry  *registry.Registry
	callbacks []func(HostStatus)
	logger    *slog.Logger
}

func (w *notifyingWriter) Set(address string, res registry.Result) error {
	if err := w.registry.Set(address, res); err != nil {
		return err
	}
	w.notify(address)
	return nil
}

func (w *notifyingWriter) Retire(address string, reason error) {
	w.registry.Retire(address, reason)
	w.notify(address)
}

func (w *notifyingWriter) notify(address string) {
	entry, err := w.registry.Entry(address)
	if err != nil {
		return
	}
	status := toHostStatus(entry)
	for _, cb := range w.callbacks {
		// each callback gets its own labels
		s := status
		s.Labels = copyMap(status.Labels)
		invokeCallbackSafe(cb, s, w.logger)
	}
}

// invokeCallbackSafe calls a status callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(HostStatus), status HostStatus, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status callback panicked",
				"panic", r,
				"host", status.Name,
				"address", status.Address,
			)
		}
	}()
	cb(status)
}

// holdProber keeps the prober's shared resources open for the caller's
// lifetime when it supports that.
func holdProber(p probe.Prober) (func(), error) {
	if h, ok := p.(probe.Holder); ok {
		return h.Hold()
	}
	return func() {}, nil
}

// adaptProber converts a public Prober to the internal interface.
// healthOf reports the scheduler's monitors for the /healthz endpoint.
func healthOf(s *poller.Scheduler) server.HealthFunc {
	return func() server.Health {
		phases := s.Phases()
		h := server.Health{
			Halted: s.Halted(),
			Phases: make(map[string]string, len(phases)),
			Writes: s.Writes(),
		}
		for addr, p := range phases {
			h.Phases[addr] = p.String()
		}
		return h
	}
}

// adaptProber bounds every call to p by timeout.
func adaptProber(p Prober, timeout time.Duration) probe.Prober {
	return probe.Func(func(ctx context.Context, address string) probe.Result {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		r := p.Probe(ctx, address)
		return probe.Result{
			Reachable:    r.Reachable,
			Latency:      r.Latency,
			LatencyKnown: r.LatencyKnown,
			CheckedAt:    r.CheckedAt,
			Err:          r.Err,
		}
	})
}

func toRegistryHosts(hosts []Host) []registry.Host {
	out := make([]registry.Host, len(hosts))
	for i, h := range hosts {
		out[i] = registry.Host{
			Name:    h.name,
			Address: h.address,
			Labels:  copyMap(h.labels),
		}
	}
	return out
}

// toHostStatus converts a registry entry to the public type.
// Registry entries are already copies, so no further copying is needed.
func toHostStatus(e registry.Entry) HostStatus {
	hs := HostStatus{
		Name:      e.Host.Name,
		Address:   e.Host.Address,
		Labels:    e.Host.Labels,
		State:     State(e.Status.State),
		Reachable: e.Status.Reachable,
		CheckedAt: e.Status.CheckedAt,
	}
	if e.Status.LatencyMs != nil {
		hs.Latency = time.Duration(math.Round(*e.Status.LatencyMs * float64(time.Millisecond)))
		hs.LatencyKnown = true
	}
	if e.Status.Error != nil {
		hs.Error = *e.Status.Error
	}
	return hs
}

func toHostStatuses(entries []registry.Entry) []HostStatus {
	out := make([]HostStatus, len(entries))
	for i, e := range entries {
		out[i] = toHostStatus(e)
	}
	return out
}
