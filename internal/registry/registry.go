package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// subscriberBuffer is the channel capacity of each subscription.
const subscriberBuffer = 100

var (
	// ErrUnknownHost is returned for addresses that were not registered.
	ErrUnknownHost = errors.New("unknown host")

	// ErrClosed is returned by writes after [Registry.Close].
	ErrClosed = errors.New("registry closed")

	// ErrRetired is returned by writes for a host whose monitor was retired.
	ErrRetired = errors.New("host retired")
)

// slot holds one host's status. Only the host's monitor writes to it.
type slot struct {
	host    Host
	status  atomic.Pointer[Status]
	retired atomic.Bool
}

// Registry is a concurrency-safe store of the latest [Status] per host.
//
// The set of hosts is fixed by [New]. Set may be called concurrently for
// different hosts; the registry assumes a single writer per host. Reads
// (Get, Snapshot) are lock-free and may run concurrently with any writes.
type Registry struct {
	slots  []*slot
	index  map[string]*slot
	closed atomic.Bool

	subMu       sync.RWMutex
	subscribers map[chan Entry]struct{}
}

// New creates a Registry for hosts, preserving their order.
//
// Every host starts with the unknown placeholder status. Returns an error if
// hosts is empty or an address is empty or duplicated.
func New(hosts []Host) (*Registry, error) {
	if len(hosts) == 0 {
		return nil, errors.New("at least one host is required")
	}

	r := &Registry{
		slots:       make([]*slot, 0, len(hosts)),
		index:       make(map[string]*slot, len(hosts)),
		subscribers: make(map[chan Entry]struct{}),
	}

	for i, h := range hosts {
		if strings.TrimSpace(h.Address) == "" {
			return nil, fmt.Errorf("hosts[%d] (%s): address is required", i, h.Name)
		}
		if _, exists := r.index[h.Address]; exists {
			return nil, fmt.Errorf("duplicate host address: %q", h.Address)
		}

		s := &slot{host: cloneHost(h)}
		initial := placeholder()
		s.status.Store(&initial)

		r.slots = append(r.slots, s)
		r.index[h.Address] = s
	}

	return r, nil
}

// Set records res as the latest status of the host at address, replacing the
// previous value entirely, and notifies subscribers.
//
// Returns an error wrapping [ErrUnknownHost], [ErrRetired] or [ErrClosed]
// when the write cannot be accepted.
func (r *Registry) Set(address string, res Result) error {
	if r.closed.Load() {
		return ErrClosed
	}

	s, ok := r.index[address]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHost, address)
	}
	if s.retired.Load() {
		return fmt.Errorf("%w: %q", ErrRetired, address)
	}

	next := &Status{
		State:     StateOffline,
		Reachable: res.Reachable,
		CheckedAt: res.CheckedAt,
	}
	if res.Reachable {
		next.State = StateOnline
		if res.LatencyMs != nil {
			v := *res.LatencyMs
			next.LatencyMs = &v
		}
	}
	if res.Error != "" {
		msg := res.Error
		next.Error = &msg
	}

	s.status.Store(next)

	r.notifySubscribers(Entry{Host: cloneHost(s.host), Status: next.clone()})
	return nil
}

// Retire marks the host at address as no longer monitored. Its status becomes
// [StateUnknown] carrying reason, and later writes for it are rejected.
//
// Retire is allowed after Close so that a failing monitor can always leave
// its host in a distinguishable state. Unknown addresses are ignored.
func (r *Registry) Retire(address string, reason error) {
	s, ok := r.index[address]
	if !ok {
		return
	}
	s.retired.Store(true)

	prev := s.status.Load()
	next := &Status{
		State:     StateUnknown,
		CheckedAt: prev.CheckedAt,
	}
	if reason != nil {
		msg := reason.Error()
		next.Error = &msg
	}
	s.status.Store(next)

	r.notifySubscribers(Entry{Host: cloneHost(s.host), Status: next.clone()})
}

// Get returns the latest status of the host at address, or the unknown
// placeholder if no probe has completed yet.
func (r *Registry) Get(address string) (Status, error) {
	s, ok := r.index[address]
	if !ok {
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownHost, address)
	}
	return s.status.Load().clone(), nil
}

// Entry returns the host and latest status registered under address.
func (r *Registry) Entry(address string) (Entry, error) {
	s, ok := r.index[address]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownHost, address)
	}
	return Entry{Host: cloneHost(s.host), Status: s.status.Load().clone()}, nil
}

// Snapshot returns every host with its current status in configuration order.
//
// The returned slice is a copy. Statuses of different hosts may come from
// different moments; each individual status is consistent.
func (r *Registry) Snapshot() []Entry {
	entries := make([]Entry, len(r.slots))
	for i, s := range r.slots {
		entries[i] = Entry{Host: cloneHost(s.host), Status: s.status.Load().clone()}
	}
	return entries
}

// Subscribe creates a subscription that receives an [Entry] for every
// accepted write. The channel is buffered; when it is full, updates are
// dropped for this subscriber.
//
// Callers must call [Registry.Unsubscribe] when done. Subscribing to a
// closed registry returns an already-closed channel.
func (r *Registry) Subscribe() <-chan Entry {
	ch := make(chan Entry, subscriberBuffer)

	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.closed.Load() {
		close(ch)
		return ch
	}
	r.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call more than once or with an unknown channel.
func (r *Registry) Unsubscribe(ch <-chan Entry) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for subCh := range r.subscribers {
		if subCh == ch {
			delete(r.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Close rejects further writes and closes all subscriber channels.
// Reads keep working. Close is idempotent.
func (r *Registry) Close() {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.closed.Swap(true) {
		return
	}
	for ch := range r.subscribers {
		close(ch)
	}
	r.subscribers = make(map[chan Entry]struct{})
}

// notifySubscribers sends entry to every subscriber without blocking.
func (r *Registry) notifySubscribers(entry Entry) {
	r.subMu.RLock()
	defer r.subMu.RUnlock()

	for ch := range r.subscribers {
		select {
		case ch <- entry:
		default:
			// subscriber is slow, drop the update
		}
	}
}

func (s *Status) clone() Status {
	cp := *s
	if s.LatencyMs != nil {
		v := *s.LatencyMs
		cp.LatencyMs = &v
	}
	if s.Error != nil {
		e := *s.Error
		cp.Error = &e
	}
	return cp
}

func cloneHost(h Host) Host {
	if h.Labels != nil {
		labels := make(map[string]string, len(h.Labels))
		for k, v := range h.Labels {
			labels[k] = v
		}
		h.Labels = labels
	}
	return h
}
