package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/clckenya/chatd/internal/pkg/goerror"
	"github.com/clckenya/chatd/internal/pkg/otp"
)

type RegisterResendInput struct {
	Email string `validate:"required,email"`
}

type RegisterResendOutput struct {
	EmailDelivered bool
	ExpiresAt      time.Time
}

// RegisterResend issues a fresh code for a still-pending registration,
// reusing the parked payload. Gated by the resend cooldown.
func (s *Usecase) RegisterResend(ctx context.Context, in RegisterResendInput) (*RegisterResendOutput, error) {
	ctx, span := s.startSpan(ctx, "RegisterResend")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	handle, err := s.otp.Reissue(ctx, in.Email)
	if err != nil {
		var cdErr *otp.CooldownError
		if errors.As(err, &cdErr) {
			seconds := int(cdErr.Remaining.Round(time.Second).Seconds())
			return nil, goerror.NewBusinessFields("Please wait before requesting another code", goerror.CodeTooManyRequest,
				"retry_after_seconds", strconv.Itoa(seconds))
		}
		if errors.Is(err, otp.ErrNoPending) {
			return nil, goerror.NewBusiness("No pending registration for this email", goerror.CodeNotFound)
		}

		slog.ErrorContext(ctx, "failed to reissue verification code", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &RegisterResendOutput{
		EmailDelivered: handle.Delivered,
		ExpiresAt:      handle.ExpiresAt,
	}, nil
}
