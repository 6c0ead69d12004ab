// Package cleanup runs the periodic backstop sweep (A5) for the pending
// registry's failed records. It exists alongside each record's own
// per-entry cleanup timer (see pending.Registry.MarkFailed) as an
// independent periodic pass over the same in-memory registry; records
// do not outlive the process, so a restart leaves nothing to reclaim.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/opensandbox/control-plane/internal/sandboxsvc"
)

// Sweeper runs the periodic pending-failure backstop sweep.
type Sweeper struct {
	svc      *sandboxsvc.Service
	interval time.Duration
}

// NewSweeper creates a sweep worker that runs every interval (default
// 5 minutes).
func NewSweeper(svc *sandboxsvc.Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{svc: svc, interval: interval}
}

// Start begins the sweep loop in a goroutine, stopping when ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	slog.Info("pending-failure sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pending-failure sweeper stopped")
			return
		case <-ticker.C:
			s.svc.SweepPendingFailures(time.Now().UTC())
		}
	}
}
