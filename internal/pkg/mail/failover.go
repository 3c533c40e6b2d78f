package mail

import (
	"context"
	"errors"
	"log/slog"
)

// Failover sends through a primary provider and falls back to a secondary
// when the primary fails. Both errors are joined when neither succeeds.
type Failover struct {
	primary   Mail
	secondary Mail
}

// NewFailover composes two providers into a failover sender. secondary may
// be nil, in which case primary failures are final.
func NewFailover(primary, secondary Mail) *Failover {
	return &Failover{primary: primary, secondary: secondary}
}

// Send attempts the primary provider first.
func (f *Failover) Send(ctx context.Context, msg Message) error {
	errPrimary := f.primary.Send(ctx, msg)
	if errPrimary == nil {
		return nil
	}

	if f.secondary == nil {
		return errPrimary
	}

	slog.WarnContext(ctx, "primary mail provider failed, using fallback", "error", errPrimary)

	if errSecondary := f.secondary.Send(ctx, msg); errSecondary != nil {
		return errors.Join(errPrimary, errSecondary)
	}

	return nil
}

// Close closes both providers.
func (f *Failover) Close() error {
	errPrimary := f.primary.Close()
	if f.secondary == nil {
		return errPrimary
	}
	return errors.Join(errPrimary, f.secondary.Close())
}
