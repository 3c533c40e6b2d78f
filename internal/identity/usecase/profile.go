package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
)

type ProfileOutput struct {
	Email     string
	FullName  string
	Role      string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Usecase) Profile(ctx context.Context) (*ProfileOutput, error) {
	ctx, span := s.startSpan(ctx, "Profile")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.repoUserDir.GetUserByEmail(ctx, clm.UserEmail)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "authenticated user missing from directory", "email", clm.UserEmail)
		return nil, goerror.NewBusiness("Account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by email", "email", clm.UserEmail, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ProfileOutput{
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role.String(),
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}, nil
}

type ProfileUpdateInput struct {
	FullName string `validate:"required,min=3,max=100"`
}

func (s *Usecase) ProfileUpdate(ctx context.Context, in ProfileUpdateInput) error {
	ctx, span := s.startSpan(ctx, "ProfileUpdate")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return err
	}

	in.FullName = strings.TrimSpace(in.FullName)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := s.repoUserDir.UpdateUserField(ctx, clm.UserEmail, entity.FieldFullName, in.FullName, s.clock.Now()); err != nil {
		if errors.Is(err, goerror.ErrNotFound) {
			return goerror.NewBusiness("Account not found", goerror.CodeNotFound)
		}
		slog.ErrorContext(ctx, "failed to repo update user full name", "email", clm.UserEmail, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
