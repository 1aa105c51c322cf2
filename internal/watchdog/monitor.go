// Package watchdog recovers batches stranded by crashed or restarted
// workers.
package watchdog

import (
	"context"
	"log"
	"time"

	"github.com/kremlit/email-enricher/internal/domain"
)

const (
	// DefaultInterval is how often the watchdog scans for stale batches
	DefaultInterval = 30 * time.Second

	// DefaultStaleAfter is how long a running batch may go without a
	// progress update before it is considered stranded
	DefaultStaleAfter = 2 * time.Minute
)

// Dispatcher re-queues a pending batch for processing
type Dispatcher interface {
	Redispatch(ctx context.Context, batch *domain.Batch)
}

// Monitor returns stranded running batches to pending and re-dispatches
// pending batches that lost their queue message.
type Monitor struct {
	batches    domain.BatchRepository
	dispatcher Dispatcher
	interval   time.Duration
	staleAfter time.Duration
}

// NewMonitor creates a new watchdog monitor
func NewMonitor(batches domain.BatchRepository, dispatcher Dispatcher, interval, staleAfter time.Duration) *Monitor {
	if interval == 0 {
		interval = DefaultInterval
	}

	if staleAfter == 0 {
		staleAfter = DefaultStaleAfter
	}

	return &Monitor{
		batches:    batches,
		dispatcher: dispatcher,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

// Run starts the watchdog loop
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Printf("batch watchdog started (interval: %s, stale after: %s)",
		m.interval, m.staleAfter)

	for {
		select {
		case <-ctx.Done():
			log.Println("batch watchdog stopped")
			return nil
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) {
	count, err := m.batches.MarkStaleRunning(ctx, int(m.staleAfter.Seconds()))
	if err != nil {
		log.Printf("error marking stale batches: %v", err)
		return
	}

	if count > 0 {
		log.Printf("returned %d stale batches to pending", count)
	}

	if m.dispatcher == nil {
		return
	}

	status := domain.BatchStatusPending
	pending, _, err := m.batches.List(ctx, domain.BatchListParams{
		Status: &status,
		Limit:  100,
	})
	if err != nil {
		log.Printf("error listing pending batches: %v", err)
		return
	}

	for _, batch := range pending {
		// A fresh pending batch was already dispatched at creation,
		// only re-dispatch ones that sat untouched for a while.
		if time.Since(batch.UpdatedAt) < m.staleAfter {
			continue
		}

		log.Printf("re-dispatching stranded batch %s", batch.ID)
		m.dispatcher.Redispatch(ctx, batch)
	}
}
