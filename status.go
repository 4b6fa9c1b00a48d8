package pingboard

import (
	"context"
	"time"
)

// State is the rendered condition of a host.
type State string

const (
	// StateUnknown means no probe has completed yet, or the host's monitor
	// stopped after a failed status write.
	StateUnknown State = "unknown"

	// StateOnline means the latest probe got a reply.
	StateOnline State = "online"

	// StateOffline means the latest probe got no reply within the timeout.
	StateOffline State = "offline"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// ProbeResult is the outcome of one reachability probe.
//
// A reachable host may have an unknown round-trip time (LatencyKnown false),
// for example when the system ping prints no time field. That is different
// from being unreachable.
type ProbeResult struct {
	// Reachable reports whether a reply arrived within the timeout.
	Reachable bool

	// Latency is the round-trip time. Only meaningful when LatencyKnown.
	Latency time.Duration

	// LatencyKnown is false when the round-trip time could not be measured.
	LatencyKnown bool

	// CheckedAt is when the probe started. Zero means "now".
	CheckedAt time.Time

	// Err describes why the host was unreachable. Diagnostic only.
	Err error
}

// Prober performs one reachability test against an address.
//
// Implementations are shared by every host's monitor and must be safe for
// concurrent use. Probe must honour ctx and should return within its own
// timeout; failures are reported as an unreachable [ProbeResult], never as
// a panic. A panic is nonetheless recovered and recorded as unreachable.
//
// Use [WithProber] to replace the built-in probers.
type Prober interface {
	Probe(ctx context.Context, address string) ProbeResult
}

// ProbeFunc adapts an ordinary function to the [Prober] interface.
type ProbeFunc func(ctx context.Context, address string) ProbeResult

// Probe calls f(ctx, address).
func (f ProbeFunc) Probe(ctx context.Context, address string) ProbeResult {
	return f(ctx, address)
}

// HostStatus is the latest observed state of one host.
//
// HostStatus is a value copy; it never changes after being returned.
type HostStatus struct {
	// Name is the host's display name.
	Name string

	// Address is the probed address.
	Address string

	// Labels contains the host's key-value metadata.
	Labels map[string]string

	// State is online, offline or unknown.
	State State

	// Reachable reports the outcome of the latest probe.
	Reachable bool

	// Latency is the latest round-trip time. Only meaningful when LatencyKnown.
	Latency time.Duration

	// LatencyKnown is false before the first probe, for unreachable hosts and
	// when the prober could not measure the round trip.
	LatencyKnown bool

	// CheckedAt is when the latest probe started. Zero before the first probe.
	CheckedAt time.Time

	// Error is a short diagnostic for unreachable or halted hosts.
	Error string
}
