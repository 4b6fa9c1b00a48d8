package pingboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jpalmerr/pingboard/internal/probe"
)

// Host is a network host to probe for reachability.
//
// Host is immutable after creation via [NewHost]. All fields are private
// with getter methods that return copies of mutable data (maps), ensuring
// the host cannot be modified after construction.
//
// The address is the host's identity: it must be unique within one [Board].
// The name is what the dashboard shows.
type Host struct {
	name    string
	address string
	labels  map[string]string
}

// Name returns the host's display name.
func (h Host) Name() string {
	return h.name
}

// Address returns the IP address or hostname that is probed.
func (h Host) Address() string {
	return h.address
}

// Labels returns a copy of the host's labels.
// Returns nil if no labels are set.
func (h Host) Labels() map[string]string {
	return copyMap(h.labels)
}

// NewHost creates a [Host] with the given display name, address and options.
//
// The address is an IPv4/IPv6 literal or a hostname. It may carry a port
// ("db.internal:5432") only when the board uses the tcp probe method; [New]
// rejects it otherwise.
//
// Returns an error if the name is empty or the address is empty, contains
// whitespace or starts with a dash.
//
// Example:
//
//	h, err := pingboard.NewHost("Router", "192.168.0.1",
//	    pingboard.WithLabels("site", "hq"),
//	)
func NewHost(name, address string, opts ...HostOption) (Host, error) {
	if strings.TrimSpace(name) == "" {
		return Host{}, errors.New("host name cannot be empty")
	}
	if err := probe.ValidateAddress(address); err != nil {
		return Host{}, fmt.Errorf("host %q: %w", name, err)
	}

	cfg := &hostConfig{
		labels: make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Host{}, err
		}
	}

	return Host{
		name:    name,
		address: address,
		labels:  cfg.labels,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
