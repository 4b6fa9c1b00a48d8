package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
)

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
hosts:
  - name: Router
    address: 192.168.0.1
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Interval.Duration() != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", cfg.Interval.Duration())
	}
	if cfg.Timeout.Duration() != time.Second {
		t.Errorf("Timeout = %v, want 1s", cfg.Timeout.Duration())
	}
	if cfg.Method != "icmp" {
		t.Errorf("Method = %q, want icmp", cfg.Method)
	}
	if cfg.TCPPort != 80 {
		t.Errorf("TCPPort = %d, want 80", cfg.TCPPort)
	}
	if cfg.Privileged != nil {
		t.Errorf("Privileged = %v, want nil", *cfg.Privileged)
	}
}

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
title: Painel de Monitoramento
port: 9090
interval: 10s
timeout: 500ms
method: tcp
tcp_port: 22
privileged: true
logging:
  level: debug
  format: json
  file: /var/log/pingboard.log
hosts:
  - name: Router
    address: 192.168.0.1
    labels:
      site: hq
  - name: DB
    address: db.internal:5432
devices:
  - nome: Switch
    ip: 192.168.0.2
grids:
  - name: Rack
    address_template: "10.0.{{.rack}}.{{.unit}}"
    dimensions:
      rack: ["1", "2"]
      unit: ["10"]
    labels:
      tier: core
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	privileged := true
	want := &Config{
		Title:      "Painel de Monitoramento",
		Port:       9090,
		Interval:   Duration(10 * time.Second),
		Timeout:    Duration(500 * time.Millisecond),
		Method:     "tcp",
		TCPPort:    22,
		Privileged: &privileged,
		Logging:    LoggingConfig{Level: "debug", Format: "json", File: "/var/log/pingboard.log"},
		Hosts: []HostConfig{
			{Name: "Router", Address: "192.168.0.1", Labels: map[string]string{"site": "hq"}},
			{Name: "DB", Address: "db.internal:5432"},
		},
		Devices: []DeviceConfig{{Name: "Switch", IP: "192.168.0.2"}},
		Grids: []GridConfig{{
			Name:            "Rack",
			AddressTemplate: "10.0.{{.rack}}.{{.unit}}",
			Dimensions:      map[string][]string{"rack": {"1", "2"}, "unit": {"10"}},
			Labels:          map[string]string{"tier": "core"},
		}},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_LegacyDeviceJSON(t *testing.T) {
	cfg, err := Parse([]byte(`{
  "devices": [
    {"nome": "Roteador", "ip": "192.168.0.1"},
    {"nome": "Impressora", "ip": "192.168.0.50"}
  ]
}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []DeviceConfig{
		{Name: "Roteador", IP: "192.168.0.1"},
		{Name: "Impressora", IP: "192.168.0.50"},
	}
	if diff := cmp.Diff(want, cfg.Devices); diff != "" {
		t.Errorf("Devices mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("PB_ROUTER", "10.1.1.1")
	t.Setenv("PB_SUBNET", "172.16")

	cfg, err := Parse([]byte(`
hosts:
  - name: Router
    address: ${PB_ROUTER}
  - name: NAS
    address: ${PB_NAS_UNSET:-nas.local}
devices:
  - nome: Switch
    ip: ${PB_ROUTER_UNSET:-10.1.1.2}
grids:
  - name: Rack
    address_template: "${PB_SUBNET}.0.{{.unit}}"
    dimensions:
      unit: ["1"]
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := cfg.Hosts[0].Address; got != "10.1.1.1" {
		t.Errorf("Hosts[0].Address = %q, want 10.1.1.1", got)
	}
	if got := cfg.Hosts[1].Address; got != "nas.local" {
		t.Errorf("Hosts[1].Address = %q, want nas.local", got)
	}
	if got := cfg.Devices[0].IP; got != "10.1.1.2" {
		t.Errorf("Devices[0].IP = %q, want 10.1.1.2", got)
	}
	if got := cfg.Grids[0].AddressTemplate; got != "172.16.0.{{.unit}}" {
		t.Errorf("Grids[0].AddressTemplate = %q, want 172.16.0.{{.unit}}", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PB_SET", "value")
	t.Setenv("PB_EMPTY", "")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "plain", want: "plain"},
		{in: "${PB_SET}", want: "value"},
		{in: "a-${PB_SET}-b", want: "a-value-b"},
		{in: "${PB_EMPTY:-fallback}", want: ""},
		{in: "${PB_MISSING:-fallback}", want: "fallback"},
		{in: "${PB_MISSING:-}", want: ""},
		{in: "${PB_MISSING}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := expandEnvVars(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandEnvVars() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no hosts",
			yaml:    "port: 8080\n",
			wantErr: "at least one host",
		},
		{
			name:    "malformed yaml",
			yaml:    "hosts: [",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "bad duration",
			yaml:    "interval: soon\nhosts: [{name: A, address: 10.0.0.1}]",
			wantErr: "invalid duration",
		},
		{
			name:    "interval too short",
			yaml:    "interval: 500ms\ntimeout: 100ms\nhosts: [{name: A, address: 10.0.0.1}]",
			wantErr: "Interval: must be between 1s and 1h0m0s",
		},
		{
			name:    "interval too long",
			yaml:    "interval: 2h\nhosts: [{name: A, address: 10.0.0.1}]",
			wantErr: "Interval",
		},
		{
			name:    "timeout above interval",
			yaml:    "interval: 2s\ntimeout: 3s\nhosts: [{name: A, address: 10.0.0.1}]",
			wantErr: "Timeout",
		},
		{
			name:    "timeout too short",
			yaml:    "timeout: 10ms\nhosts: [{name: A, address: 10.0.0.1}]",
			wantErr: "Timeout",
		},
		{
			name:    "unknown method",
			yaml:    "method: arp\nhosts: [{name: A, address: 10.0.0.1}]",
			wantErr: "Method",
		},
		{
			name:    "port out of range",
			yaml:    "port: 70000\nhosts: [{name: A, address: 10.0.0.1}]",
			wantErr: "Port",
		},
		{
			name:    "bad log level",
			yaml:    "logging: {level: loud}\nhosts: [{name: A, address: 10.0.0.1}]",
			wantErr: "Level",
		},
		{
			name:    "bad log format",
			yaml:    "logging: {format: xml}\nhosts: [{name: A, address: 10.0.0.1}]",
			wantErr: "Format",
		},
		{
			name:    "host without name",
			yaml:    "hosts: [{address: 10.0.0.1}]",
			wantErr: "hosts[0] (): Name: cannot be blank",
		},
		{
			name:    "host without address",
			yaml:    "hosts: [{name: A}]",
			wantErr: "hosts[0] (A): Address: cannot be blank",
		},
		{
			name:    "host with flag address",
			yaml:    "hosts: [{name: A, address: -c9}]",
			wantErr: "must not start with '-'",
		},
		{
			name:    "host with spaces",
			yaml:    "hosts: [{name: A, address: '10.0.0.1 -c 9'}]",
			wantErr: "must be an IP address or hostname",
		},
		{
			name:    "host with bad port",
			yaml:    "hosts: [{name: A, address: '10.0.0.1:99999'}]",
			wantErr: "invalid port",
		},
		{
			name:    "icmp host with port",
			yaml:    "method: icmp\nhosts: [{name: A, address: '127.0.0.1:80'}]",
			wantErr: "hosts[0] (A): Address: port is only supported by the tcp method",
		},
		{
			name:    "default method host with port",
			yaml:    "hosts: [{name: A, address: 'router.lan:22'}]",
			wantErr: "port is only supported by the tcp method",
		},
		{
			name:    "exec device with port",
			yaml:    "method: exec\ndevices: [{nome: Switch, ip: '[::1]:80'}]",
			wantErr: "devices[0] (Switch): Address: port is only supported",
		},
		{
			name:    "icmp grid rendering ports",
			yaml:    "grids: [{name: G, address_template: '10.0.0.1:{{.p}}', dimensions: {p: ['80']}}]",
			wantErr: "grids[0] (G) G (80): Address: port is only supported",
		},
		{
			name:    "grid with missing template key",
			yaml:    "grids: [{name: G, address_template: '10.0.{{.rack}}.{{.u}}', dimensions: {u: ['1']}}]",
			wantErr: "grids[0] (G): template execution failed",
		},
		{
			name:    "grid duplicating a host address",
			yaml:    "hosts: [{name: A, address: 10.0.0.1}]\ngrids: [{name: G, address_template: '10.0.0.{{.u}}', dimensions: {u: ['1']}}]",
			wantErr: `duplicate address "10.0.0.1"`,
		},
		{
			name:    "unset env var",
			yaml:    "hosts: [{name: A, address: '${PB_DEFINITELY_UNSET}'}]",
			wantErr: "PB_DEFINITELY_UNSET",
		},
		{
			name:    "device without ip",
			yaml:    `{"devices": [{"nome": "Switch"}]}`,
			wantErr: "devices[0] (Switch)",
		},
		{
			name:    "duplicate name",
			yaml:    "hosts: [{name: A, address: 10.0.0.1}]\ndevices: [{nome: A, ip: 10.0.0.2}]",
			wantErr: `duplicate name "A"`,
		},
		{
			name:    "duplicate address",
			yaml:    "hosts: [{name: A, address: 10.0.0.1}, {name: B, address: 10.0.0.1}]",
			wantErr: `duplicate address "10.0.0.1"`,
		},
		{
			name:    "grid without template",
			yaml:    "grids: [{name: G, dimensions: {u: ['1']}}]",
			wantErr: "address_template is required",
		},
		{
			name:    "grid with bad template",
			yaml:    "grids: [{name: G, address_template: '10.0.0.{{.u', dimensions: {u: ['1']}}]",
			wantErr: "invalid address_template",
		},
		{
			name:    "grid without dimensions",
			yaml:    "grids: [{name: G, address_template: '10.0.0.1'}]",
			wantErr: "at least one dimension",
		},
		{
			name:    "grid with duplicate dimension value",
			yaml:    "grids: [{name: G, address_template: '10.0.0.{{.u}}', dimensions: {u: ['1', '1']}}]",
			wantErr: `duplicate value "1"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("Parse() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_ReportsEveryBadEntry(t *testing.T) {
	_, err := Parse([]byte(`
port: 0
interval: 2h
hosts:
  - name: A
  - address: 10.0.0.2
devices:
  - nome: C
    ip: "-bad"
`))
	if err == nil {
		t.Fatal("Parse() error = nil, want errors")
	}

	errs := multierr.Errors(err)
	if len(errs) != 4 {
		t.Fatalf("got %d errors, want 4 (interval, two hosts, device):\n%v", len(errs), err)
	}
}

func TestParse_TCPAcceptsPorts(t *testing.T) {
	cfg, err := Parse([]byte(`
method: tcp
hosts:
  - name: Web
    address: 127.0.0.1:80
grids:
  - name: Svc
    address_template: "10.0.0.1:{{.port}}"
    dimensions:
      port: ["22", "443"]
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Hosts[0].Address != "127.0.0.1:80" {
		t.Errorf("Address = %q, want %q", cfg.Hosts[0].Address, "127.0.0.1:80")
	}
}

func TestParse_IPv6Addresses(t *testing.T) {
	cfg, err := Parse([]byte(`
method: tcp
hosts:
  - name: v6
    address: "fe80::1"
  - name: v6 with port
    address: "[2001:db8::1]:443"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(cfg.Hosts) != 2 {
		t.Errorf("len(Hosts) = %d, want 2", len(cfg.Hosts))
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pingboard.yaml")
	if err := os.WriteFile(path, []byte("hosts: [{name: A, address: 10.0.0.1}]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Hosts[0].Name != "A" {
		t.Errorf("Hosts[0].Name = %q, want A", cfg.Hosts[0].Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Load() error = %v, want read failure", err)
	}
}
