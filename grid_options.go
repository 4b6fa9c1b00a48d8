package pingboard

import (
	"errors"
	"fmt"
)

// gridConfig holds configuration during host grid construction.
type gridConfig struct {
	addressTemplate string
	dimensions      map[string][]string
	staticLabels    map[string]string
}

// GridOption configures host grid generation.
// GridOption implements the functional options pattern for [NewHostGrid].
type GridOption func(*gridConfig) error

// WithAddressTemplate sets the address template for host generation.
// The template uses Go's text/template syntax with dimension keys as variables.
//
// Example:
//
//	WithAddressTemplate("10.{{.site}}.0.{{.unit}}")
//
// Returns an error if the template string is empty.
func WithAddressTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("address template required")
		}
		cfg.addressTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the dimension values for cartesian product expansion.
// Each key in the map becomes a template variable, and the cartesian product
// of all values generates the host combinations.
//
// Example:
//
//	WithDimensions(map[string][]string{
//	    "site": {"1", "2"},
//	    "unit": {"1", "2", "3"},
//	})
//
// Returns an error if the map is empty, any dimension has no values,
// or any value is an empty string.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for k, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", k)
			}
			for i, v := range vals {
				if v == "" {
					return fmt.Errorf("dimension '%s' contains empty value at index %d", k, i)
				}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}

// WithGridLabels adds static labels to all generated hosts.
// On collision, static labels take precedence over dimension labels.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	WithGridLabels("site", "hq", "tier", "core")
func WithGridLabels(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithGridLabels requires an even number of arguments (key-value pairs)")
		}
		if cfg.staticLabels == nil {
			cfg.staticLabels = make(map[string]string)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.staticLabels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}
