package config

import (
	"fmt"
	"sort"

	"github.com/jpalmerr/pingboard"
)

// BuildHosts converts parsed configuration into SDK Host values.
//
// Order is hosts, then devices, then grids, each in file order. Grid
// dimensions are expanded via cartesian product.
func BuildHosts(cfg *Config) ([]pingboard.Host, error) {
	var hosts []pingboard.Host

	for i, hc := range cfg.Hosts {
		var opts []pingboard.HostOption
		if len(hc.Labels) > 0 {
			opts = append(opts, pingboard.WithLabels(mapToKeyValuePairs(hc.Labels)...))
		}
		h, err := pingboard.NewHost(hc.Name, hc.Address, opts...)
		if err != nil {
			return nil, fmt.Errorf("hosts[%d] (%s): %w", i, hc.Name, err)
		}
		hosts = append(hosts, h)
	}

	for i, dc := range cfg.Devices {
		h, err := pingboard.NewHost(dc.Name, dc.IP)
		if err != nil {
			return nil, fmt.Errorf("devices[%d] (%s): %w", i, dc.Name, err)
		}
		hosts = append(hosts, h)
	}

	for i, gc := range cfg.Grids {
		grid, err := gc.build()
		if err != nil {
			return nil, fmt.Errorf("grids[%d] (%s): %w", i, gc.Name, err)
		}
		hosts = append(hosts, grid...)
	}

	return hosts, nil
}

// build expands the grid into hosts.
func (g *GridConfig) build() ([]pingboard.Host, error) {
	opts := []pingboard.GridOption{
		pingboard.WithAddressTemplate(g.AddressTemplate),
		pingboard.WithDimensions(g.Dimensions),
	}
	if len(g.Labels) > 0 {
		opts = append(opts, pingboard.WithGridLabels(mapToKeyValuePairs(g.Labels)...))
	}
	return pingboard.NewHostGrid(g.Name, opts...)
}

// BoardOptions returns the [pingboard.Option] values that add hosts and apply
// the board-wide settings in cfg.
func BoardOptions(cfg *Config, hosts []pingboard.Host) []pingboard.Option {
	opts := []pingboard.Option{
		pingboard.WithHosts(hosts...),
		pingboard.WithTitle(cfg.Title),
		pingboard.WithPort(cfg.Port),
		pingboard.WithProbeInterval(cfg.Interval.Duration()),
		pingboard.WithProbeTimeout(cfg.Timeout.Duration()),
		pingboard.WithProbeMethod(cfg.Method),
		pingboard.WithTCPPort(cfg.TCPPort),
	}
	if cfg.Privileged != nil {
		opts = append(opts, pingboard.WithPrivileged(*cfg.Privileged))
	}
	return opts
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
