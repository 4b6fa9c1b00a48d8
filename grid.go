package pingboard

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"
)

// NewHostGrid creates multiple hosts from an address template and dimensions
// using cartesian product expansion.
//
// The address template uses Go's text/template syntax with dimension keys as
// variables. Missing template keys cause an error (fail-fast). Every rendered
// address is validated like one passed to [NewHost].
//
// Each host name includes dimension values in the format:
// "Base Name (val1/val2)" (values from alphabetically sorted keys).
//
// Labels are automatically added from dimension values. Static labels from
// [WithGridLabels] take precedence over dimension labels on collision.
//
// Example:
//
//	hosts, err := NewHostGrid("Rack",
//	    WithAddressTemplate("10.0.{{.rack}}.{{.unit}}"),
//	    WithDimensions(map[string][]string{
//	        "rack": {"1", "2"},
//	        "unit": {"10", "11"},
//	    }),
//	)
//	// Returns 4 hosts, usable with WithHosts(hosts...)
func NewHostGrid(baseName string, opts ...GridOption) ([]Host, error) {
	if strings.TrimSpace(baseName) == "" {
		return nil, errors.New("base name cannot be empty")
	}

	cfg := &gridConfig{
		staticLabels: make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.addressTemplate == "" {
		return nil, errors.New("address template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	// missingkey=error for fail-fast behaviour
	tmpl, err := template.New("address").Option("missingkey=error").Parse(cfg.addressTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid address template: %w", err)
	}

	points := gridPoints(cfg.dimensions)
	hosts := make([]Host, 0, len(points))
	for _, p := range points {
		var address strings.Builder
		if err := tmpl.Execute(&address, p.vars()); err != nil {
			return nil, fmt.Errorf("template execution failed: %w", err)
		}

		name := p.hostName(baseName)
		h, err := NewHost(name, address.String(), WithLabels(p.labels(cfg.staticLabels)...))
		if err != nil {
			return nil, fmt.Errorf("failed to create host '%s': %w", name, err)
		}
		hosts = append(hosts, h)
	}

	return hosts, nil
}

// gridPoint is one position in a host grid: a value for every dimension,
// with dimensions in sorted key order.
type gridPoint struct {
	keys   []string
	values []string
}

// gridPoints lists every combination of dimension values. The last key
// varies fastest and values keep their slice order. A dimension without
// values yields no points.
func gridPoints(dims map[string][]string) []gridPoint {
	if len(dims) == 0 {
		return nil
	}

	keys := slices.Sorted(maps.Keys(dims))
	points := []gridPoint{{}}
	for _, k := range keys {
		next := make([]gridPoint, 0, len(points)*len(dims[k]))
		for _, p := range points {
			for _, v := range dims[k] {
				next = append(next, gridPoint{
					keys:   append(slices.Clip(p.keys), k),
					values: append(slices.Clip(p.values), v),
				})
			}
		}
		points = next
	}
	return points
}

// vars returns the template data for the point.
func (p gridPoint) vars() map[string]string {
	m := make(map[string]string, len(p.keys))
	for i, k := range p.keys {
		m[k] = p.values[i]
	}
	return m
}

// hostName renders "Base (v1/v2)".
func (p gridPoint) hostName(base string) string {
	return fmt.Sprintf("%s (%s)", base, strings.Join(p.values, "/"))
}

// labels returns sorted key-value pairs of the dimension values overlaid by
// static.
func (p gridPoint) labels(static map[string]string) []string {
	merged := p.vars()
	maps.Copy(merged, static)

	pairs := make([]string, 0, len(merged)*2)
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		pairs = append(pairs, k, merged[k])
	}
	return pairs
}
