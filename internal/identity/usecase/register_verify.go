package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
	"github.com/clckenya/chatd/internal/pkg/mail"
	"github.com/clckenya/chatd/internal/pkg/otp"
)

type RegisterVerifyInput struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required,otpcode"`
}

// RegisterVerify confirms the emailed code and persists the pending account
// into the directory. The code is consumed before the write runs; if the
// write fails the flow must restart from Register.
func (s *Usecase) RegisterVerify(ctx context.Context, in RegisterVerifyInput) error {
	ctx, span := s.startSpan(ctx, "RegisterVerify")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	var fullName string
	res, err := s.otp.Verify(ctx, in.Email, in.Code, func(payload []byte) error {
		var pending entity.PendingRegistration
		if err := json.Unmarshal(payload, &pending); err != nil {
			return err
		}
		fullName = pending.FullName

		now := s.clock.Now()
		return s.repoUserDir.CreateUser(ctx, entity.User{
			Email:     pending.Email,
			FullName:  pending.FullName,
			Role:      entity.RoleFromString(pending.Role),
			AvatarURL: pending.AvatarURL,
			CreatedAt: now,
			UpdatedAt: now,
		}, pending.Password)
	})
	if err != nil {
		var ovErr *otp.OnVerifiedError
		if errors.As(err, &ovErr) {
			if errors.Is(err, goerror.ErrConflict) {
				return goerror.NewBusiness("Email already registered", goerror.CodeConflict)
			}
			slog.ErrorContext(ctx, "failed to persist verified registration", "email", in.Email, "error", err)
			return goerror.NewServer(err)
		}

		slog.ErrorContext(ctx, "failed to verify registration code", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := verifyOutcomeError(res); err != nil {
		return err
	}

	s.sendWelcomeMail(ctx, in.Email, fullName)

	return nil
}

// sendWelcomeMail greets the new account in the background. Failures are
// logged only; the account already exists.
func (s *Usecase) sendWelcomeMail(ctx context.Context, email, fullName string) {
	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		err := s.mailer.Send(ctx, mail.Message{
			To:      []string{email},
			Subject: "Welcome to CLC Kenya",
			TextBody: "Hi " + fullName + ",\n\n" +
				"Your account is ready. Sign in and join the conversation.\n",
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to send welcome mail", "email", email, "error", err)
		}
		return nil
	})
}

// verifyOutcomeError maps non-success verification outcomes to business
// errors. Absent, consumed, and evicted codes all read as not found.
func verifyOutcomeError(res otp.VerifyResult) error {
	switch res.Outcome {
	case otp.OutcomeSuccess:
		return nil
	case otp.OutcomeInvalidCode:
		return goerror.NewBusinessFields("Invalid verification code", goerror.CodeUnauthorized,
			"attempts_remaining", strconv.Itoa(res.AttemptsRemaining))
	case otp.OutcomeExpired:
		return goerror.NewBusiness("Verification code expired, request a new one", goerror.CodeGone)
	case otp.OutcomeLocked:
		return goerror.NewBusiness("Too many failed attempts, request a new code", goerror.CodeTooManyRequest)
	default:
		return goerror.NewBusiness("No pending verification for this email", goerror.CodeNotFound)
	}
}
