package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/pingboard/internal/probe"
	"github.com/jpalmerr/pingboard/internal/registry"
)

// StatusWriter receives probe results. [registry.Registry] implements it.
type StatusWriter interface {
	Set(address string, res registry.Result) error
	Retire(address string, reason error)
}

// Phase is the lifecycle position of a [Monitor].
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseProbing
	PhaseWaiting
	PhaseHalted
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseProbing:
		return "probing"
	case PhaseWaiting:
		return "waiting"
	case PhaseHalted:
		return "halted"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Monitor repeatedly probes a single host and writes each result.
//
// A Monitor is the only writer for its host. It alternates between probing
// and waiting until its context is cancelled (stopped) or a write is
// rejected (halted). Neither terminal phase is left again.
type Monitor struct {
	host     registry.Host
	prober   probe.Prober
	writer   StatusWriter
	interval time.Duration
	logger   *slog.Logger

	phase  atomic.Int32
	writes atomic.Uint64

	// last reachability written, for transition logging
	seen      bool
	reachable bool
}

// NewMonitor creates a Monitor for host. A nil logger falls back to
// slog.Default().
func NewMonitor(host registry.Host, prober probe.Prober, writer StatusWriter, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		host:     host,
		prober:   prober,
		writer:   writer,
		interval: interval,
		logger:   logger.With("host", host.Name, "address", host.Address),
	}
}

// Host returns the monitored host.
func (m *Monitor) Host() registry.Host {
	return m.host
}

// Phase returns the current lifecycle phase.
func (m *Monitor) Phase() Phase {
	return Phase(m.phase.Load())
}

// Writes returns how many results this monitor has written.
func (m *Monitor) Writes() uint64 {
	return m.writes.Load()
}

// Run probes the host until ctx is cancelled or a write fails.
//
// The first probe starts immediately. The wait before each following probe
// starts after the previous result has been written, so consecutive writes
// are always at least one interval apart.
//
// Run returns nil on cancellation. When the writer rejects a result, the host
// is retired with the error and Run returns it.
func (m *Monitor) Run(ctx context.Context) error {
	timer := time.NewTimer(m.interval)
	timer.Stop()
	defer timer.Stop()

	for {
		if done, err := m.step(ctx); done {
			return err
		}

		m.setPhase(PhaseWaiting)
		timer.Reset(m.interval)
		select {
		case <-ctx.Done():
			m.setPhase(PhaseStopped)
			return nil
		case <-timer.C:
		}
	}
}

// Once performs a single probe and write, then stops.
func (m *Monitor) Once(ctx context.Context) error {
	done, err := m.step(ctx)
	if !done {
		m.setPhase(PhaseStopped)
	}
	return err
}

// step probes once and writes the result. done reports that the monitor
// reached a terminal phase.
func (m *Monitor) step(ctx context.Context) (done bool, err error) {
	m.setPhase(PhaseProbing)
	res := m.safeProbe(ctx)

	if ctx.Err() != nil {
		// shutdown mid-probe, the result is not trustworthy
		m.setPhase(PhaseStopped)
		return true, nil
	}

	if err := m.writer.Set(m.host.Address, toRegistryResult(res)); err != nil {
		m.logger.Error("status write failed, monitor halted", "error", err)
		m.writer.Retire(m.host.Address, fmt.Errorf("monitor halted: %w", err))
		m.setPhase(PhaseHalted)
		return true, fmt.Errorf("%s: %w", m.host.Address, err)
	}
	m.writes.Add(1)
	m.logTransition(res)
	return false, nil
}

func (m *Monitor) setPhase(p Phase) {
	m.phase.Store(int32(p))
}

// safeProbe calls the prober with panic recovery.
// A panic is logged with its stack and a correlation ID and reported as an
// unreachable result carrying that ID.
func (m *Monitor) safeProbe(ctx context.Context) (res probe.Result) {
	checkedAt := time.Now()
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			m.logger.Error("prober panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			res = probe.Result{
				Reachable: false,
				CheckedAt: checkedAt,
				Err:       fmt.Errorf("prober panic (correlation_id: %s)", correlationID),
			}
		}
	}()

	res = m.prober.Probe(ctx, m.host.Address)
	if res.CheckedAt.IsZero() {
		res.CheckedAt = checkedAt
	}
	return res
}

func (m *Monitor) logTransition(res probe.Result) {
	switch {
	case !m.seen:
		m.logger.Debug("first probe", "reachable", res.Reachable)
	case m.reachable != res.Reachable:
		if res.Reachable {
			m.logger.Info("host online")
		} else {
			m.logger.Info("host offline", "error", res.Err)
		}
	default:
		m.logger.Debug("probe", "reachable", res.Reachable, "latency", res.Latency)
	}
	m.seen = true
	m.reachable = res.Reachable
}

// toRegistryResult converts a probe outcome to the registry's form.
// Latency is kept only for reachable results with a known round-trip time.
func toRegistryResult(res probe.Result) registry.Result {
	out := registry.Result{
		Reachable: res.Reachable,
		CheckedAt: res.CheckedAt,
	}
	if res.Reachable && res.LatencyKnown {
		ms := float64(res.Latency) / float64(time.Millisecond)
		out.LatencyMs = &ms
	}
	if !res.Reachable && res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}
