package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/clckenya/chatd/internal/chat/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100

	attachmentURLExpiry = 15 * time.Minute
)

type MessageListInput struct {
	// After is the ID of the last message the client has seen; zero means
	// from the beginning.
	After int64 `validate:"min=0"`
	// Limit above the page cap is clamped, not rejected.
	Limit int32 `validate:"min=0"`
}

type MessageListRow struct {
	Message       entity.Message
	AttachmentURL string
}

type MessageListOutput struct {
	Messages []MessageListRow
	// NextAfter is the cursor for the follow-up poll.
	NextAfter int64
}

// MessageList returns messages newer than the cursor, oldest first, so
// clients can poll for the tail of the room timeline.
func (s *Usecase) MessageList(ctx context.Context, in MessageListInput) (*MessageListOutput, error) {
	ctx, span := s.startSpan(ctx, "MessageList")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	msgs, err := s.repoDB.ListMessages(ctx, in.After, limit)
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	out := &MessageListOutput{
		Messages:  make([]MessageListRow, 0, len(msgs)),
		NextAfter: in.After,
	}
	for _, msg := range msgs {
		row := MessageListRow{Message: msg}
		if msg.AttachmentKey != "" {
			url, err := s.objStore.DownloadURL(ctx, msg.AttachmentKey, attachmentURLExpiry)
			if err != nil {
				// The message itself is still useful without the link.
				slog.WarnContext(ctx, "failed to sign attachment url",
					"message_id", msg.ID, "error", err)
			} else {
				row.AttachmentURL = url
			}
		}
		out.Messages = append(out.Messages, row)
		if msg.ID > out.NextAfter {
			out.NextAfter = msg.ID
		}
	}

	return out, nil
}
