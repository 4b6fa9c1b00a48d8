// Package poller runs the per-host probe loops for pingboard.
//
// This package is internal to pingboard. The main components are:
//
//   - [Monitor]: probes one host forever, writing each result before waiting
//   - [Scheduler]: starts one Monitor goroutine per host and stops them all
//   - [StatusWriter]: where results go, implemented by the registry
//
// Users of the pingboard library should not need to interact with this
// package directly. Configuration is done through the main pingboard package.
package poller
