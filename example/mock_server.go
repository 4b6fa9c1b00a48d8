package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"time"
)

// StartFlappingTargets listens on each of the given local ports and toggles
// every listener between accepting and refusing connections, every 20-60
// seconds, so that tcp probes see hosts go offline and come back.
// Call this in a goroutine before starting the board.
func StartFlappingTargets(ports []int) {
	for _, port := range ports {
		go flap(port)
	}
}

func flap(port int) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	for {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			slog.Error("mock target error", "addr", addr, "error", err)
			return
		}
		slog.Info("mock target up", "addr", addr)
		go accept(ln)

		time.Sleep(nextChange())
		_ = ln.Close()
		slog.Info("mock target down", "addr", addr)

		time.Sleep(nextChange())
	}
}

// accept answers each connection by closing it.
func accept(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			continue
		}
		_ = conn.Close()
	}
}

func nextChange() time.Duration {
	return time.Duration(20+rand.Intn(41)) * time.Second
}
