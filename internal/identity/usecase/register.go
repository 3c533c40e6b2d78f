package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
)

type RegisterInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
	FullName string `validate:"required,min=3,max=100"`
}

type RegisterOutput struct {
	Email          string
	EmailDelivered bool
	ExpiresAt      time.Time
}

// Register parks the pending account with a verification code; nothing is
// written to the directory until the code is confirmed.
func (s *Usecase) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	ctx, span := s.startSpan(ctx, "Register")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	_, err := s.repoUserDir.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, goerror.NewBusiness("Email already registered", goerror.CodeConflict)
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	hashedPassword, err := s.bcrypt.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	payload, err := json.Marshal(entity.PendingRegistration{
		Email:     in.Email,
		FullName:  in.FullName,
		Password:  string(hashedPassword),
		AvatarURL: "https://ui-avatars.com/api/?name=" + url.QueryEscape(in.FullName),
		Role:      entity.RoleMember.String(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal pending registration", "error", err)
		return nil, goerror.NewServer(err)
	}

	handle, err := s.otp.Issue(ctx, in.Email, payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue verification code", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !handle.Delivered {
		slog.WarnContext(ctx, "verification email not delivered", "email", in.Email)
	}

	return &RegisterOutput{
		Email:          in.Email,
		EmailDelivered: handle.Delivered,
		ExpiresAt:      handle.ExpiresAt,
	}, nil
}
