package probe

import (
	"context"
	"errors"
	"net"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodICMP, false},
		{"icmp", MethodICMP, false},
		{" ICMP ", MethodICMP, false},
		{"exec", MethodExec, false},
		{"tcp", MethodTCP, false},
		{"http", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_SelectsImplementation(t *testing.T) {
	tests := []struct {
		method Method
		check  func(Prober) bool
	}{
		{MethodICMP, func(p Prober) bool { _, ok := p.(*ICMPProber); return ok }},
		{MethodExec, func(p Prober) bool { _, ok := p.(*ExecProber); return ok }},
		{MethodTCP, func(p Prober) bool { _, ok := p.(*TCPProber); return ok }},
	}

	for _, tt := range tests {
		p, err := New(Options{Method: tt.method})
		if err != nil {
			t.Fatalf("New(%q) error = %v", tt.method, err)
		}
		if !tt.check(p) {
			t.Errorf("New(%q) returned %T", tt.method, p)
		}
	}

	if _, err := New(Options{Method: "smoke-signal"}); err == nil {
		t.Error("New() expected error for unknown method, got nil")
	}
}

func TestFunc_Probe(t *testing.T) {
	var gotAddr string
	f := Func(func(ctx context.Context, address string) Result {
		gotAddr = address
		return Result{Reachable: true, Latency: 12 * time.Millisecond, LatencyKnown: true}
	})

	res := f.Probe(context.Background(), "10.0.0.1")
	if gotAddr != "10.0.0.1" {
		t.Errorf("address = %q, want %q", gotAddr, "10.0.0.1")
	}
	if !res.Reachable || res.Latency != 12*time.Millisecond {
		t.Errorf("Probe() = %+v, want reachable with 12ms", res)
	}
}

func TestValidateAddress(t *testing.T) {
	for _, addr := range []string{"", "  ", "-c", "--help", "host name", "a\nb"} {
		if err := ValidateAddress(addr); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ValidateAddress(%q) = %v, want ErrInvalidAddress", addr, err)
		}
	}
	for _, addr := range []string{"192.168.0.1", "::1", "example.com", "host:22"} {
		if err := ValidateAddress(addr); err != nil {
			t.Errorf("ValidateAddress(%q) = %v, want nil", addr, err)
		}
	}
}

func TestMethod_CheckAddress(t *testing.T) {
	tests := []struct {
		method  Method
		address string
		wantErr error
	}{
		{MethodICMP, "192.168.0.1", nil},
		{MethodICMP, "::1", nil},
		{MethodICMP, "[::1]", nil},
		{MethodICMP, "127.0.0.1:80", ErrPortNotSupported},
		{MethodICMP, "[::1]:80", ErrPortNotSupported},
		{MethodExec, "router.lan:22", ErrPortNotSupported},
		{MethodExec, "router.lan", nil},
		{MethodTCP, "127.0.0.1:80", nil},
		{MethodTCP, "db.internal", nil},
		{MethodTCP, "-p", ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(string(tt.method)+" "+tt.address, func(t *testing.T) {
			err := tt.method.CheckAddress(tt.address)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("CheckAddress(%q) = %v, want nil", tt.address, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckAddress(%q) = %v, want %v", tt.address, err, tt.wantErr)
			}
		})
	}
}

func TestParseLatency(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   time.Duration
		wantOK bool
	}{
		{"linux", "64 bytes from 1.1.1.1: icmp_seq=1 ttl=57 time=12.3 ms", 12300 * time.Microsecond, true},
		{"windows pt-BR", "Resposta de 192.168.0.1: bytes=32 tempo=4ms TTL=64", 4 * time.Millisecond, true},
		{"windows below 1ms", "Reply from 127.0.0.1: bytes=32 time<1ms TTL=128", time.Millisecond, true},
		{"german", "Antwort von 10.0.0.1: Bytes=32 Zeit=7ms TTL=64", 7 * time.Millisecond, true},
		{"comma decimal", "tiempo=1,5 ms", 1500 * time.Microsecond, true},
		{"no time field", "PING 1.1.1.1 (1.1.1.1) 56(84) bytes of data.", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLatency([]byte(tt.output))
			if ok != tt.wantOK {
				t.Fatalf("parseLatency() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("parseLatency() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPingArgs_SinglePacket(t *testing.T) {
	args := pingArgs("192.168.0.1", time.Second)
	if args[len(args)-1] != "192.168.0.1" {
		t.Errorf("address should be the last argument, got %v", args)
	}

	joined := strings.Join(args, " ")
	if runtime.GOOS == "windows" {
		if !strings.Contains(joined, "-n 1") || !strings.Contains(joined, "-w 1000") {
			t.Errorf("pingArgs() = %v, want -n 1 -w 1000", args)
		}
	} else if !strings.Contains(joined, "-c 1") {
		t.Errorf("pingArgs() = %v, want -c 1", args)
	}
}

// fakeExecProber returns an ExecProber running echo with the given output,
// so tests exercise the subprocess path without sending packets.
func fakeExecProber(t *testing.T, output string) *ExecProber {
	t.Helper()
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo binary not available")
	}
	return &ExecProber{
		timeout: time.Second,
		command: "echo",
		args: func(address string, timeout time.Duration) []string {
			return []string{output}
		},
	}
}

func TestExecProber_ReachableWithLatency(t *testing.T) {
	p := fakeExecProber(t, "64 bytes from 10.0.0.1: icmp_seq=1 ttl=64 time=12 ms")

	res := p.Probe(context.Background(), "10.0.0.1")
	if !res.Reachable {
		t.Fatalf("Probe() = %+v, want reachable", res)
	}
	if !res.LatencyKnown || res.Latency != 12*time.Millisecond {
		t.Errorf("latency = %v (known %v), want 12ms", res.Latency, res.LatencyKnown)
	}
	if res.CheckedAt.IsZero() {
		t.Error("CheckedAt should be set")
	}
}

func TestExecProber_ReachableWithoutLatency(t *testing.T) {
	p := fakeExecProber(t, "reply received")

	res := p.Probe(context.Background(), "10.0.0.1")
	if !res.Reachable {
		t.Fatalf("Probe() = %+v, want reachable", res)
	}
	if res.LatencyKnown {
		t.Errorf("LatencyKnown = true, want false for output without a time field")
	}
}

func TestExecProber_LaunchFailureIsUnreachable(t *testing.T) {
	p := NewExecProber(time.Second)
	p.command = "pingboard-no-such-binary"

	res := p.Probe(context.Background(), "10.0.0.1")
	if res.Reachable {
		t.Fatal("Probe() reachable = true, want false when the binary is missing")
	}
	if res.Err == nil {
		t.Error("Err should describe the launch failure")
	}
	if res.LatencyKnown {
		t.Error("LatencyKnown should be false for unreachable results")
	}
}

func TestExecProber_RejectsFlagLikeAddress(t *testing.T) {
	p := fakeExecProber(t, "time=1 ms")

	res := p.Probe(context.Background(), "-f")
	if res.Reachable {
		t.Fatal("Probe() reachable = true for flag-like address")
	}
	if !errors.Is(res.Err, ErrInvalidAddress) {
		t.Errorf("Err = %v, want ErrInvalidAddress", res.Err)
	}
}

func TestTCPProber_Reachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	p := NewTCPProber(time.Second, 0)
	res := p.Probe(context.Background(), ln.Addr().String())
	if !res.Reachable {
		t.Fatalf("Probe() = %+v, want reachable", res)
	}
	if !res.LatencyKnown {
		t.Error("LatencyKnown should be true after a successful connect")
	}
}

func TestTCPProber_ClosedPortIsUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	p := NewTCPProber(time.Second, 0)
	res := p.Probe(context.Background(), addr)
	if res.Reachable {
		t.Fatal("Probe() reachable = true for a closed port")
	}
	if res.Err == nil {
		t.Error("Err should be set for a refused connection")
	}
}

func TestTCPProber_DefaultPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	p := NewTCPProber(time.Second, port)

	res := p.Probe(context.Background(), "127.0.0.1")
	if !res.Reachable {
		t.Fatalf("Probe() = %+v, want reachable via default port %d", res, port)
	}
}

func TestICMPProber_InvalidAddressIsUnreachable(t *testing.T) {
	p := NewICMPProber(100*time.Millisecond, nil)

	res := p.Probe(context.Background(), "")
	if res.Reachable {
		t.Fatal("Probe() reachable = true for empty address")
	}
	if !errors.Is(res.Err, ErrInvalidAddress) {
		t.Errorf("Err = %v, want ErrInvalidAddress", res.Err)
	}
}

func TestICMPProber_CancelledContextIsUnreachable(t *testing.T) {
	p := NewICMPProber(100*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan Result, 1)
	go func() { done <- p.Probe(ctx, "pingboard.invalid") }()

	select {
	case res := <-done:
		if res.Reachable {
			t.Error("Probe() reachable = true with cancelled context")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Probe() did not honour the cancelled context")
	}
}

func TestResourceLock(t *testing.T) {
	var rl resourceLock

	startCount, stopCount := 0, 0
	setup := func() (func(), error) {
		startCount++
		return func() { stopCount++ }, nil
	}

	assertCount := func(t *testing.T, start, stop int) {
		t.Helper()
		if startCount != start || stopCount != stop {
			t.Errorf("unexpected count: start:%d stop:%d != start:%d stop:%d", startCount, stopCount, start, stop)
		}
	}

	_ = rl.Start(setup)
	_ = rl.Start(setup)
	assertCount(t, 1, 0)

	rl.Done()
	assertCount(t, 1, 0)

	rl.Done()
	assertCount(t, 1, 1)

	_ = rl.Start(setup)
	assertCount(t, 2, 1)

	rl.Done()
	assertCount(t, 2, 2)

	// extra Done is a no-op
	rl.Done()
	assertCount(t, 2, 2)
}

func TestResourceLock_SetupError(t *testing.T) {
	var rl resourceLock
	boom := errors.New("boom")

	if err := rl.Start(func() (func(), error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v, want %v", err, boom)
	}

	// a failed setup must not count as a holder
	calls := 0
	_ = rl.Start(func() (func(), error) {
		calls++
		return func() {}, nil
	})
	if calls != 1 {
		t.Errorf("setup calls = %d, want 1 after a failed Start", calls)
	}
}
