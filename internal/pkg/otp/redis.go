package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// attemptScript performs the whole check-consume-or-increment step server
// side so concurrent verifications for one email cannot both succeed. Expired
// records are already gone via key TTL, so they surface as not_found.
//
// The code comparison here is Lua string equality, not constant time. The
// compare runs inside Redis where an attacker cannot time it directly, a
// round trip's network jitter is orders of magnitude above the difference,
// and the attempt counter caps probing at MaxAttempts guesses anyway.
var attemptScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('EXISTS', key) == 0 then
  return {'not_found', ''}
end
local max = tonumber(ARGV[2])
local attempts = tonumber(redis.call('HGET', key, 'attempts'))
if attempts >= max then
  return {'locked', ''}
end
if redis.call('HGET', key, 'code') == ARGV[1] then
  local payload = redis.call('HGET', key, 'payload')
  redis.call('DEL', key)
  return {'success', payload}
end
attempts = redis.call('HINCRBY', key, 'attempts', 1)
return {'invalid', tostring(max - attempts)}
`)

// Redis is a Store backed by a shared Redis instance, for deployments with
// more than one API replica. Record expiry rides on key TTL, so eviction
// needs no sweeps and consumed, expired, and never-issued codes are all
// indistinguishable as not found.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a Store on the given client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "otp:"}
}

func (r *Redis) recordKey(email string) string {
	return r.prefix + "rec:" + email
}

func (r *Redis) cooldownKey(email string) string {
	return r.prefix + "cd:" + email
}

// Save overwrites any record for rec.Email and sets the expiry TTL.
func (r *Redis) Save(ctx context.Context, rec Record, ttl time.Duration) error {
	key := r.recordKey(rec.Email)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"code", rec.Code,
		"issued_at", rec.IssuedAt.UnixNano(),
		"attempts", rec.Attempts,
		"payload", rec.Payload,
	)
	pipe.PExpire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("otp: save record: %w", err)
	}
	return nil
}

// Get reads the live record for email; TTL expiry makes aged records absent.
func (r *Redis) Get(ctx context.Context, email string, _ time.Time, _ time.Duration) (Record, error) {
	fields, err := r.client.HGetAll(ctx, r.recordKey(email)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("otp: get record: %w", err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNoPending
	}

	issuedNano, err := strconv.ParseInt(fields["issued_at"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("otp: get record issued_at: %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return Record{}, fmt.Errorf("otp: get record attempts: %w", err)
	}

	return Record{
		Email:    email,
		Code:     fields["code"],
		IssuedAt: time.Unix(0, issuedNano),
		Payload:  []byte(fields["payload"]),
		Attempts: attempts,
	}, nil
}

// Attempt runs the atomic verification script.
func (r *Redis) Attempt(ctx context.Context, email, candidate string, _ time.Time, _ time.Duration, maxAttempts int) (AttemptResult, error) {
	raw, err := attemptScript.Run(ctx, r.client, []string{r.recordKey(email)}, candidate, maxAttempts).Slice()
	if err != nil {
		return AttemptResult{}, fmt.Errorf("otp: attempt script: %w", err)
	}
	if len(raw) != 2 {
		return AttemptResult{}, fmt.Errorf("otp: attempt script returned %d values", len(raw))
	}

	outcome, _ := raw[0].(string)
	detail, _ := raw[1].(string)

	switch outcome {
	case "success":
		return AttemptResult{Outcome: OutcomeSuccess, Payload: []byte(detail)}, nil
	case "invalid":
		remaining, err := strconv.Atoi(detail)
		if err != nil {
			return AttemptResult{}, fmt.Errorf("otp: attempt script remaining: %w", err)
		}
		return AttemptResult{Outcome: OutcomeInvalidCode, AttemptsRemaining: remaining}, nil
	case "locked":
		return AttemptResult{Outcome: OutcomeLocked}, nil
	case "not_found":
		return AttemptResult{Outcome: OutcomeNotFound}, nil
	default:
		return AttemptResult{}, fmt.Errorf("otp: attempt script outcome %q", outcome)
	}
}

// Delete removes the record for email.
func (r *Redis) Delete(ctx context.Context, email string) error {
	return r.client.Del(ctx, r.recordKey(email)).Err()
}

// StartCooldown opens a resend cooldown window for email.
func (r *Redis) StartCooldown(ctx context.Context, email string, _ time.Time, d time.Duration) error {
	return r.client.Set(ctx, r.cooldownKey(email), "1", d).Err()
}

// CooldownRemaining reads the TTL left on the cooldown key.
func (r *Redis) CooldownRemaining(ctx context.Context, email string, _ time.Time) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, r.cooldownKey(email)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// PurgeExpired is a no-op; key TTL handles eviction.
func (r *Redis) PurgeExpired(context.Context, time.Time, time.Duration) error {
	return nil
}
