package otp

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/clckenya/chatd/internal/pkg/mail"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	fail bool
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) Close() error { return nil }

func newTestAuthority(t *testing.T) (*Authority, *Memory, *fakeClock, *fakeMailer) {
	t.Helper()

	store := NewMemory()
	clk := &fakeClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	mailer := &fakeMailer{}

	return NewAuthority(Config{}, store, mailer, clk), store, clk, mailer
}

func storedCode(t *testing.T, store *Memory, email string) string {
	t.Helper()

	store.mu.Lock()
	defer store.mu.Unlock()

	entry, ok := store.records[email]
	if !ok {
		t.Fatalf("no stored record for %s", email)
	}
	return entry.rec.Code
}

func TestIssueGeneratesZeroPaddedCode(t *testing.T) {
	auth, store, _, mailer := newTestAuthority(t)

	handle, err := auth.Issue(context.Background(), "a@x.com", nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !handle.Delivered {
		t.Fatal("expected delivery to succeed")
	}
	if handle.ExpiresAt.Sub(handle.IssuedAt) != 10*time.Minute {
		t.Fatalf("expected 10 minute expiry window, got %s", handle.ExpiresAt.Sub(handle.IssuedAt))
	}

	code := storedCode(t, store, "a@x.com")
	if !regexp.MustCompile(`^[0-9]{6}$`).MatchString(code) {
		t.Fatalf("expected 6 digit code, got %q", code)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 email sent, got %d", len(mailer.sent))
	}
	if len(mailer.sent[0].To) != 1 || mailer.sent[0].To[0] != "a@x.com" {
		t.Fatalf("email sent to %q", mailer.sent[0].To)
	}
}

func TestIssueOverwritesPriorRecord(t *testing.T) {
	auth, store, _, _ := newTestAuthority(t)
	ctx := context.Background()

	// Arrange: two issues for the same email, second with a new payload.
	if _, err := auth.Issue(ctx, "a@x.com", []byte("first")); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	oldCode := storedCode(t, store, "a@x.com")

	if _, err := auth.Issue(ctx, "a@x.com", []byte("second")); err != nil {
		t.Fatalf("second issue failed: %v", err)
	}
	newCode := storedCode(t, store, "a@x.com")

	// Act & Assert: the first code no longer verifies.
	if oldCode != newCode {
		res, err := auth.Verify(ctx, "a@x.com", oldCode, nil)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if res.Outcome != OutcomeInvalidCode {
			t.Fatalf("expected invalid_code for superseded code, got %s", res.Outcome)
		}
	}

	var got []byte
	res, err := auth.Verify(ctx, "a@x.com", newCode, func(payload []byte) error {
		got = payload
		return nil
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s", res.Outcome)
	}
	if string(got) != "second" {
		t.Fatalf("expected payload of the latest issue, got %q", got)
	}
}

func TestVerifyExpired(t *testing.T) {
	auth, store, clk, _ := newTestAuthority(t)
	ctx := context.Background()

	if _, err := auth.Issue(ctx, "c@x.com", nil); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := storedCode(t, store, "c@x.com")

	clk.Advance(601 * time.Second)

	res, err := auth.Verify(ctx, "c@x.com", code, nil)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeExpired {
		t.Fatalf("expected expired, got %s", res.Outcome)
	}

	// The record was evicted, so the correct code now reads as absent.
	res, err = auth.Verify(ctx, "c@x.com", code, nil)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected not_found after eviction, got %s", res.Outcome)
	}
}

func TestVerifyAttemptExhaustion(t *testing.T) {
	auth, store, _, _ := newTestAuthority(t)
	ctx := context.Background()

	if _, err := auth.Issue(ctx, "b@x.com", nil); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := storedCode(t, store, "b@x.com")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i, want := range []int{2, 1, 0} {
		res, err := auth.Verify(ctx, "b@x.com", wrong, nil)
		if err != nil {
			t.Fatalf("verify %d failed: %v", i, err)
		}
		if res.Outcome != OutcomeInvalidCode {
			t.Fatalf("verify %d: expected invalid_code, got %s", i, res.Outcome)
		}
		if res.AttemptsRemaining != want {
			t.Fatalf("verify %d: expected %d attempts remaining, got %d", i, want, res.AttemptsRemaining)
		}
	}

	// Even the correct code is rejected once locked.
	res, err := auth.Verify(ctx, "b@x.com", code, nil)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeLocked {
		t.Fatalf("expected locked, got %s", res.Outcome)
	}
}

func TestVerifySingleConsumption(t *testing.T) {
	auth, store, _, _ := newTestAuthority(t)
	ctx := context.Background()

	if _, err := auth.Issue(ctx, "a@x.com", []byte(`{"name":"Jo"}`)); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := storedCode(t, store, "a@x.com")

	calls := 0
	var got []byte
	res, err := auth.Verify(ctx, "a@x.com", code, func(payload []byte) error {
		calls++
		got = payload
		return nil
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s", res.Outcome)
	}
	if calls != 1 {
		t.Fatalf("expected continuation to run once, ran %d times", calls)
	}
	if string(got) != `{"name":"Jo"}` {
		t.Fatalf("unexpected payload %q", got)
	}

	// Replay with the same correct code reads as absent, not consumed.
	res, err = auth.Verify(ctx, "a@x.com", code, func([]byte) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected not_found on replay, got %s", res.Outcome)
	}
	if calls != 1 {
		t.Fatalf("continuation ran again on replay")
	}
}

func TestResendCooldown(t *testing.T) {
	auth, store, clk, _ := newTestAuthority(t)
	ctx := context.Background()

	if _, err := auth.Issue(ctx, "b@x.com", nil); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := storedCode(t, store, "b@x.com")

	// Burn two attempts so the reset is observable after resend.
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	for range 2 {
		if _, err := auth.Verify(ctx, "b@x.com", wrong, nil); err != nil {
			t.Fatalf("verify failed: %v", err)
		}
	}

	_, err := auth.Resend(ctx, "b@x.com", nil)
	var cdErr *CooldownError
	if !errors.As(err, &cdErr) {
		t.Fatalf("expected cooldown error, got %v", err)
	}
	if cdErr.Remaining <= 0 {
		t.Fatalf("expected positive remaining cooldown, got %s", cdErr.Remaining)
	}

	clk.Advance(120 * time.Second)

	if _, err := auth.Resend(ctx, "b@x.com", nil); err != nil {
		t.Fatalf("resend after cooldown failed: %v", err)
	}

	// Attempts were reset by the resend.
	newCode := storedCode(t, store, "b@x.com")
	wrong = "000000"
	if wrong == newCode {
		wrong = "000001"
	}
	res, err := auth.Verify(ctx, "b@x.com", wrong, nil)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.AttemptsRemaining != 2 {
		t.Fatalf("expected attempts reset to full after resend, remaining=%d", res.AttemptsRemaining)
	}
}

func TestDeliveryFailureKeepsCodeUsable(t *testing.T) {
	auth, store, _, mailer := newTestAuthority(t)
	mailer.fail = true
	ctx := context.Background()

	handle, err := auth.Issue(ctx, "a@x.com", nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if handle.Delivered {
		t.Fatal("expected delivered=false when mailer fails")
	}

	code := storedCode(t, store, "a@x.com")
	res, err := auth.Verify(ctx, "a@x.com", code, nil)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success despite failed delivery, got %s", res.Outcome)
	}
}

func TestVerifyWrongThenRight(t *testing.T) {
	auth, store, _, _ := newTestAuthority(t)
	ctx := context.Background()

	if _, err := auth.Issue(ctx, "b@x.com", nil); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := storedCode(t, store, "b@x.com")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	res, err := auth.Verify(ctx, "b@x.com", wrong, nil)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeInvalidCode || res.AttemptsRemaining != 2 {
		t.Fatalf("expected invalid_code with 2 remaining, got %s/%d", res.Outcome, res.AttemptsRemaining)
	}

	res, err = auth.Verify(ctx, "b@x.com", code, nil)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s", res.Outcome)
	}
}

func TestVerifyContinuationFailure(t *testing.T) {
	auth, store, _, _ := newTestAuthority(t)
	ctx := context.Background()

	if _, err := auth.Issue(ctx, "a@x.com", []byte("pending")); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := storedCode(t, store, "a@x.com")

	boom := errors.New("db down")
	_, err := auth.Verify(ctx, "a@x.com", code, func([]byte) error {
		return boom
	})

	var ovErr *OnVerifiedError
	if !errors.As(err, &ovErr) {
		t.Fatalf("expected OnVerifiedError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatal("expected wrapped continuation error")
	}

	// The code was consumed before the continuation ran; it cannot retry.
	res, err := auth.Verify(ctx, "a@x.com", code, nil)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected not_found after consumed continuation failure, got %s", res.Outcome)
	}
}

func TestConcurrentVerifySingleSuccess(t *testing.T) {
	auth, store, _, _ := newTestAuthority(t)
	ctx := context.Background()

	if _, err := auth.Issue(ctx, "race@x.com", nil); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	code := storedCode(t, store, "race@x.com")

	const goroutines = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	continuations := 0

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := auth.Verify(ctx, "race@x.com", code, func([]byte) error {
				mu.Lock()
				continuations++
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("verify failed: %v", err)
				return
			}
			if res.Outcome == OutcomeSuccess {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	if continuations != 1 {
		t.Fatalf("expected continuation to run once, ran %d times", continuations)
	}
}

func TestMemoryPurgeExpired(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	if err := store.Save(ctx, Record{Email: "old@x.com", Code: "111111", IssuedAt: now.Add(-11 * time.Minute)}, 10*time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, Record{Email: "new@x.com", Code: "222222", IssuedAt: now}, 10*time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := store.PurgeExpired(ctx, now, 10*time.Minute); err != nil {
		t.Fatalf("purge failed: %v", err)
	}

	res, err := store.Attempt(ctx, "old@x.com", "111111", now, 10*time.Minute, 3)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected purged record to be absent, got %s", res.Outcome)
	}

	res, err = store.Attempt(ctx, "new@x.com", "222222", now, 10*time.Minute, 3)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected live record to survive the sweep, got %s", res.Outcome)
	}
}

func TestSweeperStartStop(t *testing.T) {
	auth, store, clk, _ := newTestAuthority(t)
	ctx := context.Background()

	if _, err := auth.Issue(ctx, "sweep@x.com", nil); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	clk.Advance(11 * time.Minute)

	sweeper := NewSweeper(auth, time.Millisecond)
	sweeper.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		_, ok := store.records["sweep@x.com"]
		store.mu.Unlock()
		if !ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	sweeper.Stop()
	sweeper.Stop() // idempotent

	store.mu.Lock()
	_, ok := store.records["sweep@x.com"]
	store.mu.Unlock()
	if ok {
		t.Fatal("expected expired record to be swept")
	}
}
