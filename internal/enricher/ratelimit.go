package enricher

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a minimum interval between oracle calls. One Gate is
// shared by every worker probing the same provider, so aggregate traffic
// stays within the provider's rate limit no matter the concurrency.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewGate creates a Gate with the given minimum interval between calls.
// A zero interval disables pacing.
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval}
}

// Wait blocks until the caller may issue the next call, or until the
// context is cancelled.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.interval <= 0 {
		return ctx.Err()
	}

	g.mu.Lock()
	now := time.Now()

	if g.next.Before(now) {
		g.next = now
	}

	wait := g.next.Sub(now)
	g.next = g.next.Add(g.interval)
	g.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
