package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/CGeorges/tradingboard/pkg/client"
)

// Scheduler periodically flushes the synchronizer's retry queue so writes
// that failed in the background eventually reach the remote store.
type Scheduler struct {
	sync     *client.Synchronizer
	flushInt time.Duration
}

// New creates a new scheduler.
func New(sync *client.Synchronizer, flushInt time.Duration) *Scheduler {
	if flushInt == 0 {
		flushInt = time.Minute
	}
	return &Scheduler{sync: sync, flushInt: flushInt}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.flushInt)
	defer ticker.Stop()

	fmt.Fprintf(os.Stderr, "scheduler: running (flush every %s)\n", s.flushInt)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			if pending := s.sync.PendingCount(); pending > 0 {
				fmt.Fprintf(os.Stderr, "scheduler: flushing %d pending writes...\n", pending)
				s.sync.Flush(ctx)
			}
		}
	}
}
