//go:build !linux && !darwin

package probe

import (
	"context"

	pinger "github.com/macrat/go-parallel-pinger"
)

func startPinger(ctx context.Context, p *pinger.Pinger, _ bool) error {
	return p.Start(ctx)
}
