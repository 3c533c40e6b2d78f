package otp

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/atomic"
)

// Sweeper periodically purges expired records from an Authority. It is only
// needed for stores without native TTL, where abandoned flows would otherwise
// accumulate records forever. Cancellation is cooperative: each tick checks a
// liveness flag instead of relying on being killed.
type Sweeper struct {
	authority *Authority
	interval  time.Duration
	live      *atomic.Bool
	quit      chan struct{}
	done      chan struct{}
}

// NewSweeper builds a stopped sweeper with the given tick interval.
func NewSweeper(authority *Authority, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		authority: authority,
		interval:  interval,
		live:      atomic.NewBool(false),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop. Calling it on a running sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	if !s.live.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.live.Store(false)
				return
			case <-s.quit:
				return
			case <-ticker.C:
				if !s.live.Load() {
					return
				}
				if err := s.authority.PurgeExpired(ctx); err != nil {
					slog.WarnContext(ctx, "expired code sweep failed", "error", err)
				}
			}
		}
	}()
}

// Stop asks the loop to exit and waits for it. Safe to call once.
func (s *Sweeper) Stop() {
	if !s.live.CompareAndSwap(true, false) {
		return
	}
	close(s.quit)
	<-s.done
}
