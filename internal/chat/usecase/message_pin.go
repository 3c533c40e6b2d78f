package usecase

import (
	"context"
	"errors"

	"github.com/clckenya/chatd/internal/chat/entity"
	identityentity "github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
)

type MessagePinInput struct {
	MessageID int64 `validate:"required,min=1"`
	Pinned    bool
}

type MessagePinOutput struct {
	Message entity.Message
}

// MessagePin marks or unmarks a message as pinned. Admin only.
func (s *Usecase) MessagePin(ctx context.Context, in MessagePinInput) (*MessagePinOutput, error) {
	ctx, span := s.startSpan(ctx, "MessagePin")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}
	if identityentity.RoleFromString(clm.UserRole) != identityentity.RoleAdmin {
		return nil, goerror.NewBusiness("Insufficient permission", goerror.CodeForbidden)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.repoDB.SetMessagePinned(ctx, in.MessageID, in.Pinned); err != nil {
		if errors.Is(err, goerror.ErrNotFound) {
			return nil, goerror.NewBusiness("Message not found", goerror.CodeNotFound)
		}
		return nil, goerror.NewServer(err)
	}

	msg, err := s.repoDB.GetMessage(ctx, in.MessageID)
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	return &MessagePinOutput{Message: *msg}, nil
}
