package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/clckenya/chatd/internal/pkg/clock"
	"github.com/clckenya/chatd/internal/pkg/mail"
)

const (
	defaultDigits      = 6
	defaultTTL         = 10 * time.Minute
	defaultMaxAttempts = 3
	defaultCooldown    = 120 * time.Second
	defaultSendTimeout = 10 * time.Second
)

// Config tunes the authority. Zero values fall back to the defaults: 6
// digits, 10 minute expiry, 3 attempts, 120 second resend cooldown, 10
// second delivery timeout.
type Config struct {
	// Digits is the code length.
	Digits int
	// TTL is how long an issued code stays verifiable.
	TTL time.Duration
	// MaxAttempts is the failed-attempt count that locks a record.
	MaxAttempts int
	// ResendCooldown is the minimum gap between sends for one email.
	ResendCooldown time.Duration
	// SendTimeout bounds the email delivery call.
	SendTimeout time.Duration
	// Sender is the From address on outgoing mail.
	Sender string
	// Subject is the outgoing mail subject line.
	Subject string
	// LogPlainCode logs generated codes at debug level. Development only;
	// must stay off in production.
	LogPlainCode bool
}

// Authority is the single owner of code life-cycle for all emails. Safe for
// concurrent use; all shared state lives in the Store.
type Authority struct {
	cfg    Config
	store  Store
	mailer mail.Mail
	clock  clock.Clocker
}

// NewAuthority builds an Authority over the given store, mailer, and clock.
func NewAuthority(cfg Config, store Store, mailer mail.Mail, clk clock.Clocker) *Authority {
	if cfg.Digits <= 0 {
		cfg.Digits = defaultDigits
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = defaultCooldown
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.Subject == "" {
		cfg.Subject = "Your verification code"
	}

	return &Authority{cfg: cfg, store: store, mailer: mailer, clock: clk}
}

// Issue generates a fresh code for email, replacing any previous record and
// resetting its attempts, then tries to deliver it. Delivery failure is not
// an error: the handle reports it and the code stays verifiable.
func (a *Authority) Issue(ctx context.Context, email string, payload []byte) (Handle, error) {
	if email == "" {
		return Handle{}, ErrEmptyEmail
	}

	code, err := a.generateCode()
	if err != nil {
		return Handle{}, err
	}

	now := a.clock.Now()
	rec := Record{
		Email:    email,
		Code:     code,
		IssuedAt: now,
		Payload:  payload,
	}

	if err := a.store.Save(ctx, rec, a.cfg.TTL); err != nil {
		return Handle{}, err
	}

	if err := a.store.StartCooldown(ctx, email, now, a.cfg.ResendCooldown); err != nil {
		return Handle{}, err
	}

	if a.cfg.LogPlainCode {
		slog.DebugContext(ctx, "issued verification code", "email", email, "plain_code", code)
	}

	return Handle{
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.cfg.TTL),
		Delivered: a.deliver(ctx, email, code),
	}, nil
}

// Resend issues a fresh code unless the cooldown window from the previous
// send is still open, in which case it returns a CooldownError.
func (a *Authority) Resend(ctx context.Context, email string, payload []byte) (Handle, error) {
	if email == "" {
		return Handle{}, ErrEmptyEmail
	}

	remaining, err := a.store.CooldownRemaining(ctx, email, a.clock.Now())
	if err != nil {
		return Handle{}, err
	}
	if remaining > 0 {
		return Handle{}, &CooldownError{Remaining: remaining}
	}

	return a.Issue(ctx, email, payload)
}

// Reissue is Resend for callers that no longer hold the original payload: it
// reuses the pending payload of the live record. Returns ErrNoPending when no
// live record exists, in which case the whole flow must restart.
func (a *Authority) Reissue(ctx context.Context, email string) (Handle, error) {
	if email == "" {
		return Handle{}, ErrEmptyEmail
	}

	rec, err := a.store.Get(ctx, email, a.clock.Now(), a.cfg.TTL)
	if err != nil {
		return Handle{}, err
	}

	return a.Resend(ctx, email, rec.Payload)
}

// Verify checks candidate against the live record for email. On match the
// record is consumed first, then onVerified runs exactly once with the stored
// payload; if it fails the error is wrapped in OnVerifiedError and the code
// is already gone. Consumed and expired-evicted records both come back as
// OutcomeNotFound.
func (a *Authority) Verify(ctx context.Context, email, candidate string, onVerified func(payload []byte) error) (VerifyResult, error) {
	if email == "" {
		return VerifyResult{}, ErrEmptyEmail
	}

	res, err := a.store.Attempt(ctx, email, candidate, a.clock.Now(), a.cfg.TTL, a.cfg.MaxAttempts)
	if err != nil {
		return VerifyResult{}, err
	}

	if res.Outcome != OutcomeSuccess {
		return VerifyResult{Outcome: res.Outcome, AttemptsRemaining: res.AttemptsRemaining}, nil
	}

	if onVerified != nil {
		if err := onVerified(res.Payload); err != nil {
			return VerifyResult{}, &OnVerifiedError{Err: err}
		}
	}

	return VerifyResult{Outcome: OutcomeSuccess}, nil
}

// CooldownRemaining reports how long until resend is allowed for email.
func (a *Authority) CooldownRemaining(ctx context.Context, email string) (time.Duration, error) {
	return a.store.CooldownRemaining(ctx, email, a.clock.Now())
}

// PurgeExpired evicts records past their expiry window.
func (a *Authority) PurgeExpired(ctx context.Context) error {
	return a.store.PurgeExpired(ctx, a.clock.Now(), a.cfg.TTL)
}

func (a *Authority) generateCode() (string, error) {
	limit := big.NewInt(int64(math.Pow10(a.cfg.Digits)))
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", a.cfg.Digits, n), nil
}

func (a *Authority) deliver(ctx context.Context, email, code string) bool {
	if a.mailer == nil {
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, a.cfg.SendTimeout)
	defer cancel()

	minutes := int(a.cfg.TTL.Minutes())
	msg := mail.Message{
		From:     a.cfg.Sender,
		To:       []string{email},
		Subject:  a.cfg.Subject,
		TextBody: fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes),
		HTMLBody: fmt.Sprintf(
			"<p>Your verification code is</p><h2>%s</h2><p>It expires in %d minutes. If you did not request this, ignore this email.</p>",
			code, minutes,
		),
	}

	if err := a.mailer.Send(sendCtx, msg); err != nil {
		slog.WarnContext(ctx, "verification code delivery failed", "email", email, "error", err)
		return false
	}
	return true
}
