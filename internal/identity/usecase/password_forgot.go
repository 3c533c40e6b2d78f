package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/clckenya/chatd/internal/pkg/goerror"
)

type PasswordForgotInput struct {
	Email string `validate:"required,email"`
}

// PasswordForgot emails a reset code to a registered address. Unknown emails
// succeed silently so the endpoint cannot be used to probe the directory.
func (s *Usecase) PasswordForgot(ctx context.Context, in PasswordForgotInput) error {
	ctx, span := s.startSpan(ctx, "PasswordForgot")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	_, err := s.repoUserDir.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "email not registered for password reset", "email", in.Email)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	// The email itself is the key; no payload needs parking.
	handle, err := s.otp.Issue(ctx, in.Email, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue reset code", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if !handle.Delivered {
		slog.WarnContext(ctx, "reset email not delivered", "email", in.Email)
	}

	return nil
}
