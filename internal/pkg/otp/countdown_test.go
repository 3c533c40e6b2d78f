package otp

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReissueReusesPayload(t *testing.T) {
	auth, store, clk, _ := newTestAuthority(t)
	ctx := context.Background()

	if _, err := auth.Issue(ctx, "a@x.com", []byte("pending-user")); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	clk.Advance(121 * time.Second)

	if _, err := auth.Reissue(ctx, "a@x.com"); err != nil {
		t.Fatalf("reissue failed: %v", err)
	}

	code := storedCode(t, store, "a@x.com")
	var got []byte
	res, err := auth.Verify(ctx, "a@x.com", code, func(payload []byte) error {
		got = payload
		return nil
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s", res.Outcome)
	}
	if string(got) != "pending-user" {
		t.Fatalf("expected original payload to survive reissue, got %q", got)
	}
}

func TestReissueWithoutPendingRecord(t *testing.T) {
	auth, _, _, _ := newTestAuthority(t)

	_, err := auth.Reissue(context.Background(), "ghost@x.com")
	if !errors.Is(err, ErrNoPending) {
		t.Fatalf("expected ErrNoPending, got %v", err)
	}
}

func TestCountdownRunsToZero(t *testing.T) {
	ticks := make(chan time.Duration, 16)
	c := StartCountdown(30*time.Millisecond, 10*time.Millisecond, func(remaining time.Duration) {
		ticks <- remaining
	})

	var last time.Duration = -1
	deadline := time.After(2 * time.Second)
	for last != 0 {
		select {
		case last = <-ticks:
		case <-deadline:
			t.Fatal("countdown never reached zero")
		}
	}

	if c.Live() {
		t.Fatal("expected countdown to be finished")
	}
	if c.Remaining() != 0 {
		t.Fatalf("expected zero remaining, got %s", c.Remaining())
	}

	c.Stop() // no-op after completion
}

func TestCountdownStop(t *testing.T) {
	c := StartCountdown(time.Hour, 5*time.Millisecond, nil)

	if !c.Live() {
		t.Fatal("expected countdown to be live")
	}

	c.Stop()

	if c.Live() {
		t.Fatal("expected countdown to be stopped")
	}
	if c.Remaining() == 0 {
		t.Fatal("expected time remaining on an abandoned countdown")
	}
}
