package registry

import "time"

// State is the rendered condition of a host.
type State string

const (
	// StateUnknown means no probe has completed yet, or the host's monitor
	// has stopped. It is not a negative result.
	StateUnknown State = "unknown"

	// StateOnline means the latest probe got a reply.
	StateOnline State = "online"

	// StateOffline means the latest probe got no reply.
	StateOffline State = "offline"
)

// Host identifies one monitored host. Address is the identity key.
type Host struct {
	Name    string            `json:"name"`
	Address string            `json:"address"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// Result is one completed probe as handed to [Registry.Set].
type Result struct {
	Reachable bool

	// LatencyMs is nil when the round-trip time is unknown.
	LatencyMs *float64

	CheckedAt time.Time

	// Error is a short diagnostic for unreachable results.
	Error string
}

// Status is the latest observed state of a host.
//
// Status values are immutable once stored; the registry replaces them whole.
type Status struct {
	State     State     `json:"state"`
	Reachable bool      `json:"reachable"`
	LatencyMs *float64  `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
	Error     *string   `json:"error"`
}

// Entry pairs a host with its current status. It is the unit of a snapshot
// and of subscription updates.
type Entry struct {
	Host   Host   `json:"host"`
	Status Status `json:"status"`
}

// placeholder is the status of a host before its first probe completes.
func placeholder() Status {
	return Status{State: StateUnknown}
}
