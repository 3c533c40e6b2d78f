package otp

import (
	"time"

	"go.uber.org/atomic"
)

// Countdown is a cancellable per-session ticker that counts a cooldown window
// down to zero, invoking onTick with the remaining duration once per
// interval. It backs "resend available in Ns" style displays. The owner must
// Stop it when the flow completes or is abandoned; cancellation is
// cooperative via a liveness flag checked each tick.
type Countdown struct {
	remaining *atomic.Duration
	live      *atomic.Bool
	done      chan struct{}
}

// StartCountdown launches a countdown over total, ticking every interval.
// onTick may be nil; it runs on the countdown goroutine.
func StartCountdown(total, interval time.Duration, onTick func(remaining time.Duration)) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}

	c := &Countdown{
		remaining: atomic.NewDuration(total),
		live:      atomic.NewBool(true),
		done:      make(chan struct{}),
	}

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			if !c.live.Load() {
				return
			}

			left := c.remaining.Sub(interval)
			if left < 0 {
				left = 0
				c.remaining.Store(0)
			}
			if onTick != nil {
				onTick(left)
			}
			if left == 0 {
				c.live.Store(false)
				return
			}
		}
	}()

	return c
}

// Remaining reports the time left in the window.
func (c *Countdown) Remaining() time.Duration {
	return c.remaining.Load()
}

// Live reports whether the countdown is still ticking.
func (c *Countdown) Live() bool {
	return c.live.Load()
}

// Stop cancels the countdown and waits for the ticker goroutine to exit.
// Stopping a finished countdown is a no-op.
func (c *Countdown) Stop() {
	c.live.Store(false)
	<-c.done
}
