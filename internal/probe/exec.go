package probe

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// execGrace is extra time given to the ping binary beyond its own reply
// timeout before the process is killed.
const execGrace = 500 * time.Millisecond

// latencyPattern matches the round-trip field printed by ping in the common
// locales, e.g. "time=12.3 ms", "tempo=4ms", "Zeit<1ms".
var latencyPattern = regexp.MustCompile(`(?i)\b(?:time|tempo|tiempo|zeit|temps)\s*[=<]\s*([0-9]+(?:[.,][0-9]+)?)\s*ms`)

// ExecProber runs the operating system's ping binary once per probe.
//
// Exit status zero means reachable. The latency is parsed from the output;
// when no round-trip field is present the host is reported reachable with an
// unknown latency.
type ExecProber struct {
	timeout time.Duration
	command string
	args    func(address string, timeout time.Duration) []string
}

// NewExecProber creates an [ExecProber] that waits at most timeout for a reply.
func NewExecProber(timeout time.Duration) *ExecProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecProber{
		timeout: timeout,
		command: "ping",
		args:    pingArgs,
	}
}

// Probe runs ping against address.
func (p *ExecProber) Probe(ctx context.Context, address string) Result {
	checkedAt := time.Now()

	if err := ValidateAddress(address); err != nil {
		return unreachable(checkedAt, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout+execGrace)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.command, p.args(address, p.timeout)...)
	out, err := cmd.Output()
	if err != nil {
		return unreachable(checkedAt, fmt.Errorf("%s: %w", p.command, err))
	}

	latency, ok := parseLatency(out)
	return Result{
		Reachable:    true,
		Latency:      latency,
		LatencyKnown: ok,
		CheckedAt:    checkedAt,
	}
}

// pingArgs returns single-packet ping arguments for the current OS.
func pingArgs(address string, timeout time.Duration) []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"-n", "1", "-w", strconv.FormatInt(timeout.Milliseconds(), 10), address}
	case "darwin", "freebsd", "openbsd", "netbsd":
		return []string{"-c", "1", "-W", strconv.FormatInt(timeout.Milliseconds(), 10), address}
	default:
		// linux takes whole seconds
		secs := int64((timeout + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		return []string{"-c", "1", "-W", strconv.FormatInt(secs, 10), address}
	}
}

// parseLatency extracts the first round-trip time from ping output.
func parseLatency(out []byte) (time.Duration, bool) {
	m := latencyPattern.FindSubmatch(out)
	if m == nil {
		return 0, false
	}

	ms, err := strconv.ParseFloat(strings.Replace(string(m[1]), ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(math.Round(ms * float64(time.Millisecond))), true
}
