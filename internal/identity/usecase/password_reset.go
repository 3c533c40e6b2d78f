package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
	"github.com/clckenya/chatd/internal/pkg/otp"
)

type PasswordResetInput struct {
	Email       string `validate:"required,email"`
	Code        string `validate:"required,otpcode"`
	NewPassword string `validate:"required,password"`
}

// PasswordReset confirms the emailed code and replaces the stored password
// hash. The code is consumed before the write; a failed write requires a
// fresh forgot-password request.
func (s *Usecase) PasswordReset(ctx context.Context, in PasswordResetInput) error {
	ctx, span := s.startSpan(ctx, "PasswordReset")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	hashedPassword, err := s.bcrypt.Hash(in.NewPassword)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return goerror.NewServer(err)
	}

	res, err := s.otp.Verify(ctx, in.Email, in.Code, func([]byte) error {
		return s.repoUserDir.UpdateUserField(ctx, in.Email, entity.FieldPassword, string(hashedPassword), s.clock.Now())
	})
	if err != nil {
		var ovErr *otp.OnVerifiedError
		if errors.As(err, &ovErr) {
			slog.ErrorContext(ctx, "failed to persist password reset", "email", in.Email, "error", err)
			return goerror.NewServer(err)
		}

		slog.ErrorContext(ctx, "failed to verify reset code", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	return verifyOutcomeError(res)
}
