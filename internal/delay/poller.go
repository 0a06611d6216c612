package delay

import (
	"context"
	"log"
	"time"
)

// Poller recomputes a snapshot-derived view on a fixed interval and
// immediately when the change feed signals a relevant table. Each pass
// is a discrete snapshot-then-filter; passes never overlap.
type Poller struct {
	Interval time.Duration
	// Recompute fetches a fresh snapshot and derives the view.
	// Errors are logged and the next tick retries.
	Recompute func(ctx context.Context) error
	// Changes delivers table-change signals; nil disables the
	// out-of-band trigger.
	Changes <-chan string
	Logger  *log.Logger
}

// Run blocks until ctx is done. The view is computed once on entry,
// then on every tick or change notification.
func (p Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval < time.Minute {
		interval = time.Minute
	}
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	run := func() {
		if err := p.Recompute(ctx); err != nil {
			logger.Printf("delay poll: %v", err)
		}
	}
	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		case _, ok := <-p.Changes:
			if !ok {
				p.Changes = nil
				continue
			}
			run()
		}
	}
}
