// Package probe implements single-shot reachability checks for pingboard.
//
// This package is internal to pingboard. A [Prober] issues exactly one
// reachability test against a host address and reports the outcome as a
// [Result]. Probers are total: every failure mode (timeout, unreachable host,
// permission error, malformed address, subprocess launch failure) collapses
// into a Result with Reachable set to false. Nothing is ever returned as an
// error and nothing is written to shared state.
//
// The available implementations are:
//
//   - [ICMPProber]: one ICMP echo request using a shared raw/datagram socket
//   - [ExecProber]: one run of the operating system's ping binary
//   - [TCPProber]: one TCP connect to the host
//   - [Func]: adapter for custom or mocked probe functions
//
// Use [New] to construct a Prober from [Options].
package probe
