package inbound

import (
	"context"

	"github.com/clckenya/chatd/internal/chat/usecase"
	identityentity "github.com/clckenya/chatd/internal/identity/entity"
	"github.com/clckenya/chatd/internal/pkg/router"
)

type uc interface {
	MessageList(ctx context.Context, in usecase.MessageListInput) (*usecase.MessageListOutput, error)
	MessageSend(ctx context.Context, in usecase.MessageSendInput) (*usecase.MessageSendOutput, error)
	MessagePin(ctx context.Context, in usecase.MessagePinInput) (*usecase.MessagePinOutput, error)
	AttachmentUpload(ctx context.Context, in usecase.AttachmentUploadInput) (*usecase.AttachmentUploadOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, u uc) {
	end := &HTTPEndpoint{uc: u}

	r.GET("/api/v1/chat/messages", end.MessageList)
	r.POST("/api/v1/chat/messages", end.MessageSend)
	r.PATCH("/api/v1/chat/messages/:id/pin", end.MessagePin,
		router.RequireRole(identityentity.RoleAdmin.String()))
	r.POST("/api/v1/chat/attachments", end.AttachmentUpload)
}
