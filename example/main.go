package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pingboard"
)

func main() {
	// start flapping local targets (see mock_server.go)
	StartFlappingTargets([]int{9901, 9902, 9903, 9904})
	time.Sleep(100 * time.Millisecond)

	// grid API: 2 racks × 2 units = 4 hosts from one declaration
	hosts, err := pingboard.NewHostGrid("Rack",
		pingboard.WithAddressTemplate("127.0.0.1:99{{.rack}}{{.unit}}"),
		pingboard.WithDimensions(map[string][]string{
			"rack": {"0"},
			"unit": {"1", "2", "3", "4"},
		}),
		pingboard.WithGridLabels("site", "lab"),
	)
	if err != nil {
		slog.Error("failed to create host grid", "error", err)
		os.Exit(1)
	}

	// add an external host, probed on its HTTPS port
	dns, _ := pingboard.NewHost("Cloudflare DNS", "1.1.1.1:443",
		pingboard.WithLabels("site", "internet"),
	)
	hosts = append(hosts, dns)

	b, err := pingboard.New(
		pingboard.WithHosts(hosts...),
		pingboard.WithProbeMethod("tcp"),
		pingboard.WithProbeInterval(2*time.Second),
		pingboard.WithProbeTimeout(time.Second),
		pingboard.WithPort(8080),
		pingboard.WithTitle("Pingboard Demo"),
		pingboard.WithStatusCallback(func(s pingboard.HostStatus) {
			if s.State == pingboard.StateOffline {
				slog.Warn("host offline", "host", s.Name, "error", s.Error)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Pingboard demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println()
	fmt.Println("  Hosts:")
	fmt.Println("    4 local tcp targets that go up and down")
	fmt.Println("    1 external (1.1.1.1:443)")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop (F toggles fullscreen in the browser)")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		slog.Error("pingboard error", "error", err)
		os.Exit(1)
	}
}
