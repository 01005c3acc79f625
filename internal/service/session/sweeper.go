package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically times out expired sessions, cancelling the drafts
// their owners abandoned. The lazy path in Manager.Current already handles
// any phone that sends a message; the sweep catches sessions whose owner
// simply went silent.
type Sweeper struct {
	log      *slog.Logger
	manager  *Manager
	interval time.Duration
}

// NewSweeper creates a sweeper. Intervals under a minute are clamped up —
// sweeping is a cleanup pass, not a hot loop.
func NewSweeper(logger *slog.Logger, manager *Manager, interval time.Duration) *Sweeper {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Sweeper{
		log:      logger.With("service", "session_sweeper"),
		manager:  manager,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.manager.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.manager.SweepExpired(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "session sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired sessions swept", slog.Int("count", n))
	}
}
