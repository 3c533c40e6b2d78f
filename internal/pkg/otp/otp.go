package otp

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Outcome classifies the result of a verification attempt.
type Outcome int

const (
	// OutcomeSuccess means the code matched and the record was consumed.
	OutcomeSuccess Outcome = iota
	// OutcomeInvalidCode means the code did not match; attempts remain.
	OutcomeInvalidCode
	// OutcomeExpired means the record aged out and has been evicted.
	OutcomeExpired
	// OutcomeNotFound means no live record exists for the email.
	OutcomeNotFound
	// OutcomeLocked means failed attempts are exhausted until a new code is issued.
	OutcomeLocked
)

// String returns a short lowercase name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidCode:
		return "invalid_code"
	case OutcomeExpired:
		return "expired"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Record is the stored state for one pending code.
type Record struct {
	// Email is the natural key; at most one live record exists per email.
	Email string
	// Code is the zero-padded numeric code.
	Code string
	// IssuedAt is when the code was generated.
	IssuedAt time.Time
	// Payload is opaque caller data handed to the continuation on success.
	Payload []byte
	// Attempts counts failed verifications since issuance.
	Attempts int
}

// Handle is the caller-visible result of issuing a code. It never carries the
// code itself.
type Handle struct {
	// Email is the address the code was issued for.
	Email string
	// IssuedAt is when the code was generated.
	IssuedAt time.Time
	// ExpiresAt is when the code stops verifying.
	ExpiresAt time.Time
	// Delivered reports whether the email send succeeded. A failed send does
	// not invalidate the code.
	Delivered bool
}

// VerifyResult is the typed outcome of a verification attempt.
type VerifyResult struct {
	// Outcome classifies what happened.
	Outcome Outcome
	// AttemptsRemaining is set when Outcome is OutcomeInvalidCode.
	AttemptsRemaining int
}

// AttemptResult is what a Store reports back from an atomic verification.
type AttemptResult struct {
	Outcome           Outcome
	AttemptsRemaining int
	// Payload is populated only when Outcome is OutcomeSuccess.
	Payload []byte
}

// Store holds pending records and cooldown windows. Attempt must be atomic
// per email: two concurrent calls with the correct code must yield at most
// one OutcomeSuccess.
type Store interface {
	// Save overwrites any record for rec.Email and applies the expiry window.
	Save(ctx context.Context, rec Record, ttl time.Duration) error
	// Get returns the live record for email without mutating it, evicting it
	// first if expired. Absent and expired records return ErrNoPending.
	Get(ctx context.Context, email string, now time.Time, ttl time.Duration) (Record, error)
	// Attempt evaluates candidate against the stored record, consuming it on
	// match and incrementing attempts on mismatch, as one atomic operation.
	Attempt(ctx context.Context, email, candidate string, now time.Time, ttl time.Duration, maxAttempts int) (AttemptResult, error)
	// Delete removes the record for email, if any.
	Delete(ctx context.Context, email string) error
	// StartCooldown opens a resend cooldown window for email.
	StartCooldown(ctx context.Context, email string, now time.Time, d time.Duration) error
	// CooldownRemaining reports how long until resend is allowed again; zero
	// means no active window.
	CooldownRemaining(ctx context.Context, email string, now time.Time) (time.Duration, error)
	// PurgeExpired evicts records older than ttl. Stores with native TTL may
	// treat this as a no-op.
	PurgeExpired(ctx context.Context, now time.Time, ttl time.Duration) error
}

// ErrEmptyEmail is returned when issuing or verifying with an empty address.
var ErrEmptyEmail = errors.New("otp: email must not be empty")

// ErrNoPending is returned when reissuing for an email with no live record.
var ErrNoPending = errors.New("otp: no pending record")

// CooldownError reports a resend rejected because the cooldown window is
// still open.
type CooldownError struct {
	// Remaining is how long until resend becomes allowed.
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("otp: resend cooldown active for %s", e.Remaining)
}

// OnVerifiedError reports that the code was confirmed and consumed but the
// caller-supplied continuation failed. The code cannot be reused; the whole
// flow must restart with a fresh issue.
type OnVerifiedError struct {
	Err error
}

func (e *OnVerifiedError) Error() string {
	return "otp: verified continuation failed: " + e.Err.Error()
}

func (e *OnVerifiedError) Unwrap() error {
	return e.Err
}
