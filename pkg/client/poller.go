package client

import (
	"context"
	"time"
)

// Poller drives a periodic refresh loop, the kind list views run while
// mounted. Cancellation is cooperative: the context is checked before each
// tick, so no request outlives logout or navigation.
type Poller struct {
	interval time.Duration
	fetch    func(context.Context) error
}

// NewPoller builds a poller around the fetch callback.
func NewPoller(interval time.Duration, fetch func(context.Context) error) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{interval: interval, fetch: fetch}
}

// Run fetches once immediately and then on every tick until the context is
// cancelled. Fetch errors do not stop the loop.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	_ = p.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			_ = p.fetch(ctx)
		}
	}
}
