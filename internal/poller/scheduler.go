package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/pingboard/internal/probe"
	"github.com/jpalmerr/pingboard/internal/registry"
)

// Scheduler supervises one [Monitor] per host.
//
// Each monitor runs in its own goroutine, so a slow or unresponsive host
// never delays another. The scheduler does no periodic work itself and never
// restarts a monitor that halted.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	monitors []*Monitor
	logger   *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
	halted  map[string]error
}

// NewScheduler creates a [Scheduler] with a monitor for every host.
//
// Parameters:
//   - hosts: Hosts to monitor, one monitor each
//   - prober: Shared prober, must be safe for concurrent use
//   - writer: Destination of every result (normally the registry)
//   - interval: Wait between the end of one write and the next probe
//   - logger: Logger for monitor events
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop].
func NewScheduler(hosts []registry.Host, prober probe.Prober, writer StatusWriter, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	monitors := make([]*Monitor, len(hosts))
	for i, h := range hosts {
		monitors[i] = NewMonitor(h, prober, writer, interval, logger)
	}

	return &Scheduler{
		monitors: monitors,
		logger:   logger,
		halted:   make(map[string]error),
	}
}

// Start launches every monitor in a background goroutine.
//
// Start is non-blocking. Monitors probe immediately and keep running until
// [Scheduler.Stop] is called or ctx is cancelled.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(len(s.monitors))
	s.mu.Unlock()

	s.logger.Info("starting monitors", "hosts", len(s.monitors))

	for _, m := range s.monitors {
		go func(m *Monitor) {
			defer s.wg.Done()
			if err := m.Run(runCtx); err != nil {
				s.mu.Lock()
				s.halted[m.Host().Address] = err
				s.mu.Unlock()
			}
		}(m)
	}
}

// Stop cancels every monitor and waits for them to return.
//
// In-flight probes are abandoned through context cancellation and their
// results are discarded. Stop is idempotent and safe to call multiple times.
// Calling Stop before Start is a safe no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// RunOnce probes every host a single time, concurrently, and returns when
// all results are written. It does not start the periodic monitors and is
// meant for one-shot checks on a scheduler that is never started.
func (s *Scheduler) RunOnce(ctx context.Context) {
	var wg sync.WaitGroup
	for _, m := range s.monitors {
		wg.Add(1)
		go func(m *Monitor) {
			defer wg.Done()
			if err := m.Once(ctx); err != nil {
				s.mu.Lock()
				s.halted[m.Host().Address] = err
				s.mu.Unlock()
			}
		}(m)
	}
	wg.Wait()
}

// Halted returns the monitors that terminated because a write was rejected,
// keyed by host address.
func (s *Scheduler) Halted() map[string]error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]error, len(s.halted))
	for addr, err := range s.halted {
		out[addr] = err
	}
	return out
}

// Phases returns the current phase of every monitor, keyed by host address.
func (s *Scheduler) Phases() map[string]Phase {
	out := make(map[string]Phase, len(s.monitors))
	for _, m := range s.monitors {
		out[m.Host().Address] = m.Phase()
	}
	return out
}

// Writes returns the number of results each monitor has written, keyed by
// host address.
func (s *Scheduler) Writes() map[string]uint64 {
	out := make(map[string]uint64, len(s.monitors))
	for _, m := range s.monitors {
		out[m.Host().Address] = m.Writes()
	}
	return out
}
