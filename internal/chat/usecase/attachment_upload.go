package usecase

import (
	"context"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/clckenya/chatd/internal/chat/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
)

// maxAttachmentSize caps uploads at 10 MiB.
const maxAttachmentSize = 10 << 20

type AttachmentUploadInput struct {
	Filename    string `validate:"required,max=255"`
	ContentType string `validate:"required,max=100"`
	Size        int64
	Body        io.Reader
}

type AttachmentUploadOutput struct {
	Attachment entity.Attachment
}

// AttachmentUpload stores an uploaded file and returns the key a message can
// reference, together with a signed download URL.
func (s *Usecase) AttachmentUpload(ctx context.Context, in AttachmentUploadInput) (*AttachmentUploadOutput, error) {
	ctx, span := s.startSpan(ctx, "AttachmentUpload")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if in.Size > maxAttachmentSize {
		return nil, goerror.NewBusiness("Attachment exceeds the 10 MiB limit", goerror.CodeInvalidInput)
	}
	if in.Body == nil {
		return nil, goerror.NewBusiness("Attachment body is empty", goerror.CodeInvalidInput)
	}

	key := s.strID.Generate()
	if ext := strings.ToLower(path.Ext(in.Filename)); ext != "" {
		key += ext
	}

	body := io.LimitReader(in.Body, maxAttachmentSize+1)
	att, err := s.objStore.Upload(ctx, key, in.ContentType, in.Size, body)
	if err != nil {
		return nil, goerror.NewServer(err)
	}
	if att.Size > maxAttachmentSize {
		if err := s.objStore.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "failed to remove oversize attachment", "key", key, "error", err)
		}
		return nil, goerror.NewBusiness("Attachment exceeds the 10 MiB limit", goerror.CodeInvalidInput)
	}

	url, err := s.objStore.DownloadURL(ctx, key, attachmentURLExpiry)
	if err != nil {
		return nil, goerror.NewServer(err)
	}
	att.URL = url

	return &AttachmentUploadOutput{Attachment: att}, nil
}
