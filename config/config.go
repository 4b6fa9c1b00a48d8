// Package config provides YAML configuration parsing for pingboard.
//
// This package enables running pingboard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
// JSON files are accepted too, JSON being a subset of YAML.
//
// Example configuration:
//
//	title: Network
//	port: 8080
//	interval: 5s
//	timeout: 1s
//	method: icmp
//
//	hosts:
//	  - name: Router
//	    address: 192.168.0.1
//	    labels: {site: hq}
//
//	grids:
//	  - name: Rack
//	    address_template: "10.0.{{.rack}}.{{.unit}}"
//	    dimensions:
//	      rack: ["1", "2"]
//	      unit: ["10", "11"]
//
// The device list format of older panels is read as well:
//
//	{"devices": [{"nome": "Switch", "ip": "192.168.0.2"}]}
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/pingboard/internal/logging"
	"github.com/jpalmerr/pingboard/internal/probe"
)

const (
	defaultPort     = 8080
	defaultInterval = 5 * time.Second
	defaultTimeout  = probe.DefaultTimeout

	minInterval = time.Second
	maxInterval = time.Hour
	minTimeout  = 100 * time.Millisecond
)

// Config is the root configuration structure for pingboard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Pingboard" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// Interval is the pause between a host's status update and its next
	// probe. Must be between 1s and 1h. Defaults to 5s.
	Interval Duration `yaml:"interval"`

	// Timeout bounds a single probe. Must be between 100ms and Interval.
	// Defaults to 1s.
	Timeout Duration `yaml:"timeout"`

	// Method is the probe method: icmp (default), exec or tcp.
	Method string `yaml:"method"`

	// TCPPort is dialled by the tcp method for addresses without a port.
	// Defaults to 80.
	TCPPort int `yaml:"tcp_port"`

	// Privileged forces raw (true) or datagram (false) ICMP sockets.
	Privileged *bool `yaml:"privileged"`

	Logging LoggingConfig `yaml:"logging"`

	// Hosts defines individual hosts.
	Hosts []HostConfig `yaml:"hosts"`

	// Devices defines hosts in the legacy {nome, ip} format.
	Devices []DeviceConfig `yaml:"devices"`

	// Grids defines host grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`
}

// LoggingConfig selects the log level, format and optional log file.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`

	// Format is text (default) or json.
	Format string `yaml:"format"`

	// File, when set, receives a copy of the logs with size-based rotation.
	File string `yaml:"file"`
}

// HostConfig defines a single host.
type HostConfig struct {
	// Name is the display name shown in the dashboard.
	Name string `yaml:"name"`

	// Address is an IP address or hostname, optionally with a port for the
	// tcp method. Supports ${VAR} and ${VAR:-default}.
	Address string `yaml:"address"`

	// Labels are metadata key-value pairs.
	Labels map[string]string `yaml:"labels"`
}

// DeviceConfig is a host in the legacy device list format.
type DeviceConfig struct {
	Name string `yaml:"nome"`
	IP   string `yaml:"ip"`
}

// GridConfig defines a host grid that expands via cartesian product.
//
// For example, with dimensions {rack: [1, 2], unit: [10, 11]} the grid
// expands to 4 hosts.
type GridConfig struct {
	// Name is the base name for generated hosts.
	Name string `yaml:"name"`

	// AddressTemplate is a Go template for generating addresses.
	// Dimension keys are available as template variables: {{.rack}}.
	// Supports environment variable substitution.
	AddressTemplate string `yaml:"address_template"`

	// Dimensions maps dimension names to their possible values.
	Dimensions map[string][]string `yaml:"dimensions"`

	// Labels are applied to all generated hosts, on top of the automatic
	// dimension labels.
	Labels map[string]string `yaml:"labels"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
// Groups: 1 = name, 2 = ":-default" (set when a default is given), 3 = default.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
// An unset variable without a default is an error.
func expandEnvVars(s string) (string, error) {
	var missing []string

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(m[1]); ok {
			return value
		}
		if m[2] != "" {
			return m[3]
		}
		missing = append(missing, m[1])
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("environment variable %q is not set", missing[0])
	}
	return result, nil
}

// Load reads and parses a configuration file.
//
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML (or JSON) configuration data.
//
// Defaults are applied before validation. Environment variables are expanded
// in addresses and address templates. Every invalid entry is reported, not
// just the first one.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Interval == 0 {
		c.Interval = Duration(defaultInterval)
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(defaultTimeout)
	}
	if c.Method == "" {
		c.Method = string(probe.MethodICMP)
	}
	if c.TCPPort == 0 {
		c.TCPPort = probe.DefaultTCPPort
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	var errs error

	if err := c.validateSettings(); err != nil {
		errs = multierr.Append(errs, err)
	}
	method := probe.Method(c.Method)

	names := make(map[string]string)
	addresses := make(map[string]string)
	claim := func(where, name, address string) error {
		var err error
		if prev, ok := names[name]; ok {
			err = multierr.Append(err, fmt.Errorf("%s: duplicate name %q (also %s)", where, name, prev))
		} else {
			names[name] = where
		}
		if prev, ok := addresses[address]; ok {
			err = multierr.Append(err, fmt.Errorf("%s: duplicate address %q (also %s)", where, address, prev))
		} else {
			addresses[address] = where
		}
		return err
	}

	for i := range c.Hosts {
		h := &c.Hosts[i]
		where := fmt.Sprintf("hosts[%d] (%s)", i, h.Name)

		expanded, err := expandEnvVars(h.Address)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: address: %w", where, err))
			continue
		}
		h.Address = expanded

		if err := validateHost(h.Name, h.Address, method); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", where, err))
			continue
		}
		errs = multierr.Append(errs, claim(where, h.Name, h.Address))
	}

	for i := range c.Devices {
		d := &c.Devices[i]
		where := fmt.Sprintf("devices[%d] (%s)", i, d.Name)

		expanded, err := expandEnvVars(d.IP)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: ip: %w", where, err))
			continue
		}
		d.IP = expanded

		if err := validateHost(d.Name, d.IP, method); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", where, err))
			continue
		}
		errs = multierr.Append(errs, claim(where, d.Name, d.IP))
	}

	for i := range c.Grids {
		g := &c.Grids[i]
		where := fmt.Sprintf("grids[%d] (%s)", i, g.Name)

		if err := g.expandAndValidate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", where, err))
			continue
		}

		hosts, err := g.build()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", where, err))
			continue
		}
		for _, h := range hosts {
			hostWhere := fmt.Sprintf("%s %s", where, h.Name())
			if err := validateHost(h.Name(), h.Address(), method); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", hostWhere, err))
				continue
			}
			errs = multierr.Append(errs, claim(hostWhere, h.Name(), h.Address()))
		}
	}

	if len(c.Hosts) == 0 && len(c.Devices) == 0 && len(c.Grids) == 0 {
		errs = multierr.Append(errs, errors.New("at least one host, device or grid must be defined"))
	}

	return errs
}

// validateSettings checks the board-wide settings.
func (c *Config) validateSettings() error {
	interval := c.Interval.Duration()

	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Interval,
			validation.By(durationBetween(minInterval, maxInterval)),
		),
		validation.Field(&c.Timeout,
			validation.By(durationBetween(minTimeout, interval)),
		),
		validation.Field(&c.Method,
			validation.In(string(probe.MethodICMP), string(probe.MethodExec), string(probe.MethodTCP)),
		),
		validation.Field(&c.TCPPort, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Logging, validation.By(func(value interface{}) error {
			lc, ok := value.(LoggingConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
			}
			return validation.ValidateStruct(&lc,
				validation.Field(&lc.Level, validation.By(func(value interface{}) error {
					if _, err := logging.ParseLevel(value.(string)); err != nil {
						return validation.NewError("validation_invalid_level", "must be debug, info, warn or error")
					}
					return nil
				})),
				validation.Field(&lc.Format, validation.In("text", "json")),
			)
		})),
	)
}

func (g *GridConfig) expandAndValidate() error {
	if g.Name == "" {
		return errors.New("name is required")
	}
	if g.AddressTemplate == "" {
		return errors.New("address_template is required")
	}

	expanded, err := expandEnvVars(g.AddressTemplate)
	if err != nil {
		return fmt.Errorf("address_template: %w", err)
	}
	g.AddressTemplate = expanded

	// fail fast before the SDK tries to use an invalid template
	if _, err := template.New("").Parse(g.AddressTemplate); err != nil {
		return fmt.Errorf("invalid address_template: %w", err)
	}

	if len(g.Dimensions) == 0 {
		return errors.New("at least one dimension is required")
	}
	var errs error
	for dimName, dimValues := range g.Dimensions {
		if len(dimValues) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("dimension %q has no values", dimName))
			continue
		}
		seen := make(map[string]struct{}, len(dimValues))
		for _, v := range dimValues {
			if _, exists := seen[v]; exists {
				errs = multierr.Append(errs, fmt.Errorf("dimension %q has duplicate value %q", dimName, v))
			}
			seen[v] = struct{}{}
		}
	}
	return errs
}

// validateHost checks a display name and an address probed by method.
func validateHost(name, address string, method probe.Method) error {
	h := struct{ Name, Address string }{name, address}
	return validation.ValidateStruct(&h,
		validation.Field(&h.Name, validation.Required),
		validation.Field(&h.Address, validation.Required, validation.By(addressRule(method))),
	)
}

// addressRule accepts an IP literal or a hostname. A port is accepted only
// for the tcp method.
func addressRule(method probe.Method) validation.RuleFunc {
	return func(value interface{}) error {
		addr, ok := value.(string)
		if !ok {
			return validation.NewError("validation_invalid_type", "must be a string")
		}
		return validateAddress(addr, method)
	}
}

func validateAddress(addr string, method probe.Method) error {
	host := addr
	if h, port, err := net.SplitHostPort(addr); err == nil {
		if err := is.Port.Validate(port); err != nil {
			return validation.NewError("validation_invalid_port", "invalid port")
		}
		if err := method.CheckAddress(addr); errors.Is(err, probe.ErrPortNotSupported) {
			return validation.NewError("validation_port_not_supported", "port is only supported by the tcp method")
		}
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")

	if strings.HasPrefix(host, "-") {
		return validation.NewError("validation_invalid_host", "must not start with '-'")
	}
	if err := is.Host.Validate(host); err != nil {
		return validation.NewError("validation_invalid_host", "must be an IP address or hostname")
	}
	return nil
}

func durationBetween(lo, hi time.Duration) validation.RuleFunc {
	return func(value interface{}) error {
		d, ok := value.(Duration)
		if !ok {
			return validation.NewError("validation_invalid_type", "must be a duration")
		}
		if d.Duration() < lo || d.Duration() > hi {
			return validation.NewError("validation_out_of_range",
				fmt.Sprintf("must be between %s and %s", lo, hi))
		}
		return nil
	}
}
