//go:build linux || darwin

package probe

import (
	"context"

	pinger "github.com/macrat/go-parallel-pinger"
)

// startPinger starts p, retrying with the other socket type when fallback is
// allowed and the default one is not permitted.
func startPinger(ctx context.Context, p *pinger.Pinger, fallback bool) error {
	err := p.Start(ctx)
	if err == nil || !fallback {
		return err
	}

	p.SetPrivileged(!pinger.DEFAULT_PRIVILEGED)
	return p.Start(ctx)
}
