package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	pinger "github.com/macrat/go-parallel-pinger"
)

var errIPv6Unavailable = errors.New("ipv6 ping socket unavailable")

// resourceLock reference-counts a resource that is set up by the first user
// and torn down when the last user is done.
type resourceLock struct {
	sync.Mutex

	count    int
	teardown func()
}

// Start registers a user, running setup if nobody holds the resource yet.
// Every successful Start must be paired with a call to Done.
func (rl *resourceLock) Start(setup func() (teardown func(), err error)) error {
	rl.Lock()
	defer rl.Unlock()

	if rl.count == 0 {
		teardown, err := setup()
		if err != nil {
			return err
		}
		rl.teardown = teardown
	}
	rl.count++

	return nil
}

// Done releases one user, tearing the resource down after the last one.
func (rl *resourceLock) Done() {
	rl.Lock()
	defer rl.Unlock()

	if rl.count == 0 {
		return
	}
	rl.count--

	if rl.count == 0 && rl.teardown != nil {
		rl.teardown()
		rl.teardown = nil
	}
}

// ICMPProber sends a single ICMP echo request per probe.
//
// All probes share one IPv4 and one IPv6 pinger. The sockets are opened by
// the first concurrent probe (or by [ICMPProber.Hold]) and closed when the
// last user releases them.
type ICMPProber struct {
	timeout    time.Duration
	privileged *bool

	rl *resourceLock
	v4 *pinger.Pinger
	v6 *pinger.Pinger
}

// NewICMPProber creates an [ICMPProber] waiting at most timeout for a reply.
// privileged may be nil to let the prober pick a working socket type.
func NewICMPProber(timeout time.Duration, privileged *bool) *ICMPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ICMPProber{
		timeout:    timeout,
		privileged: privileged,
		rl:         &resourceLock{},
	}
}

// Hold opens the shared sockets and keeps them open until release is called.
// It also reports early when ICMP is not permitted on this system.
func (p *ICMPProber) Hold() (func(), error) {
	if err := p.rl.Start(p.setup); err != nil {
		return nil, fmt.Errorf("failed to open ping socket: %w", err)
	}
	var once sync.Once
	return func() { once.Do(p.rl.Done) }, nil
}

func (p *ICMPProber) setup() (func(), error) {
	v4 := pinger.NewIPv4()
	v6 := pinger.NewIPv6()

	if p.privileged != nil {
		v4.SetPrivileged(*p.privileged)
		v6.SetPrivileged(*p.privileged)
	}

	ctx, stop := context.WithCancel(context.Background())

	if err := startPinger(ctx, v4, p.privileged == nil); err != nil {
		stop()
		return nil, err
	}
	if err := startPinger(ctx, v6, p.privileged == nil); err != nil {
		// hosts without IPv6 still get IPv4 probing
		v6 = nil
	}

	p.v4, p.v6 = v4, v6

	return func() {
		stop()
		p.v4, p.v6 = nil, nil
	}, nil
}

// Probe resolves address and sends it one echo request.
func (p *ICMPProber) Probe(ctx context.Context, address string) Result {
	checkedAt := time.Now()

	if err := ValidateAddress(address); err != nil {
		return unreachable(checkedAt, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ip, err := resolveIP(ctx, address)
	if err != nil {
		return unreachable(checkedAt, err)
	}

	if err := p.rl.Start(p.setup); err != nil {
		return unreachable(checkedAt, fmt.Errorf("failed to open ping socket: %w", err))
	}
	defer p.rl.Done()

	pg := p.v4
	if ip.To4() == nil {
		pg = p.v6
		if pg == nil {
			return unreachable(checkedAt, errIPv6Unavailable)
		}
	}

	res, err := pg.Ping(ctx, &net.IPAddr{IP: ip}, 1, p.timeout)
	if err != nil {
		return unreachable(checkedAt, err)
	}
	if res.Recv == 0 {
		return unreachable(checkedAt, ErrNoReply)
	}

	return Result{
		Reachable:    true,
		Latency:      res.AvgRTT,
		LatencyKnown: true,
		CheckedAt:    checkedAt,
	}
}

// resolveIP returns address as an IP, resolving host names within ctx.
// IPv4 addresses are preferred when a name has both families.
func resolveIP(ctx context.Context, address string) (net.IP, error) {
	if ip := net.ParseIP(address); ip != nil {
		return ip, nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, address)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %q resolves to no addresses", ErrInvalidAddress, address)
	}

	for _, a := range addrs {
		if a.IP.To4() != nil {
			return a.IP, nil
		}
	}
	return addrs[0].IP, nil
}
