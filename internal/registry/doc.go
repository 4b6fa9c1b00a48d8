// Package registry holds the latest reachability status of every monitored host.
//
// This package is internal to pingboard. The [Registry] is the single piece
// of state shared between the per-host monitors (writers) and the
// presentation layer (readers). Its host set is fixed at construction and
// kept in configuration order.
//
// Each host has exactly one writer, so stored values are swapped atomically
// per host rather than guarded by a registry-wide lock: readers never wait
// for a pending write and always see either the previous or the new value.
//
// The registry also fans out every write to subscribers (used for
// Server-Sent Events and WebSocket streams). Delivery is non-blocking; slow
// subscribers miss updates rather than stall the monitors.
package registry
