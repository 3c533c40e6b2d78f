package inbound

import (
	"github.com/samber/lo"

	"github.com/clckenya/chatd/internal/chat/usecase"
	"github.com/clckenya/chatd/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// MessageList returns messages newer than the "after" cursor.
func (h *HTTPEndpoint) MessageList(req *router.Request) (any, error) {
	after, err := req.GetQueryInt64("after")
	if err != nil {
		return nil, err
	}
	limit, err := req.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}

	out, err := h.uc.MessageList(req.Context(), usecase.MessageListInput{
		After: after,
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	return MessageListResponse{
		Messages: lo.Map(out.Messages, func(row usecase.MessageListRow, _ int) MessageResponse {
			return messageResponse(row)
		}),
		NextAfter: out.NextAfter,
	}, nil
}

// MessageSend posts a message to the room.
func (h *HTTPEndpoint) MessageSend(req *router.Request) (any, error) {
	var body MessageSendRequest
	if err := req.DecodeBody(&body); err != nil {
		return nil, err
	}

	out, err := h.uc.MessageSend(req.Context(), usecase.MessageSendInput{
		Text:          body.Text,
		AttachmentKey: body.AttachmentKey,
	})
	if err != nil {
		return nil, err
	}

	return messageResponse(usecase.MessageListRow{Message: out.Message}), nil
}

// MessagePin toggles the pinned flag on a message.
func (h *HTTPEndpoint) MessagePin(req *router.Request) (any, error) {
	id, err := req.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var body MessagePinRequest
	if err := req.DecodeBody(&body); err != nil {
		return nil, err
	}

	out, err := h.uc.MessagePin(req.Context(), usecase.MessagePinInput{
		MessageID: id,
		Pinned:    body.Pinned,
	})
	if err != nil {
		return nil, err
	}

	return messageResponse(usecase.MessageListRow{Message: out.Message}), nil
}

// AttachmentUpload accepts a multipart file under the "file" field.
func (h *HTTPEndpoint) AttachmentUpload(req *router.Request) (any, error) {
	part, err := req.StreamSingleFile("file")
	if err != nil {
		return nil, err
	}
	defer part.Close()

	out, err := h.uc.AttachmentUpload(req.Context(), usecase.AttachmentUploadInput{
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Size:        -1,
		Body:        part,
	})
	if err != nil {
		return nil, err
	}

	return AttachmentResponse{
		Key:         out.Attachment.Key,
		ContentType: out.Attachment.ContentType,
		Size:        out.Attachment.Size,
		URL:         out.Attachment.URL,
	}, nil
}

func messageResponse(row usecase.MessageListRow) MessageResponse {
	return MessageResponse{
		ID:            row.Message.ID,
		Sender:        row.Message.Sender,
		Text:          row.Message.Text,
		AttachmentKey: row.Message.AttachmentKey,
		AttachmentURL: row.AttachmentURL,
		Pinned:        row.Message.Pinned,
		CreatedAt:     row.Message.CreatedAt,
	}
}
