package usecase

import (
	"context"

	"github.com/clckenya/chatd/internal/chat/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
)

type MessageSendInput struct {
	Text          string `validate:"max=2000"`
	AttachmentKey string `validate:"max=200"`
}

type MessageSendOutput struct {
	Message entity.Message
}

// MessageSend posts a message to the community room timeline. A message must
// carry text, an attachment, or both.
func (s *Usecase) MessageSend(ctx context.Context, in MessageSendInput) (*MessageSendOutput, error) {
	ctx, span := s.startSpan(ctx, "MessageSend")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if in.Text == "" && in.AttachmentKey == "" {
		return nil, goerror.NewBusiness("Message needs text or an attachment", goerror.CodeInvalidInput)
	}

	if in.AttachmentKey != "" {
		ok, err := s.objStore.Exists(ctx, in.AttachmentKey)
		if err != nil {
			return nil, goerror.NewServer(err)
		}
		if !ok {
			return nil, goerror.NewBusiness("Attachment not found", goerror.CodeNotFound)
		}
	}

	msg := entity.Message{
		ID:            s.numID.Generate(),
		Sender:        clm.UserEmail,
		Text:          in.Text,
		AttachmentKey: in.AttachmentKey,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repoDB.CreateMessage(ctx, msg); err != nil {
		return nil, goerror.NewServer(err)
	}

	return &MessageSendOutput{Message: msg}, nil
}
