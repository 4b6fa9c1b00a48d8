package pingboard

import "errors"

// hostConfig holds mutable state during host construction.
type hostConfig struct {
	labels map[string]string
}

// HostOption configures a [Host] during construction with [NewHost].
// Options return an error if validation fails.
type HostOption func(*hostConfig) error

// WithLabels adds metadata labels to the host.
//
// Labels are key-value pairs carried into the API and status callbacks,
// e.g. to record a site or rack. Accepts variadic key-value pairs; the
// number of arguments must be even.
//
// Example:
//
//	h, err := pingboard.NewHost("Switch", "192.168.0.2",
//	    pingboard.WithLabels("site", "hq", "floor", "2"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithLabels(keyValues ...string) HostOption {
	return func(cfg *hostConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}
