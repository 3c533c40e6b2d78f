package inbound

import "time"

type MessageResponse struct {
	ID            int64     `json:"id,string"`
	Sender        string    `json:"sender"`
	Text          string    `json:"text"`
	AttachmentKey string    `json:"attachment_key,omitempty"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	Pinned        bool      `json:"pinned"`
	CreatedAt     time.Time `json:"created_at"`
}

type MessageListResponse struct {
	Messages  []MessageResponse `json:"messages"`
	NextAfter int64             `json:"next_after,string"`
}

type MessageSendRequest struct {
	Text          string `json:"text"`
	AttachmentKey string `json:"attachment_key"`
}

type MessagePinRequest struct {
	Pinned bool `json:"pinned"`
}

type AttachmentResponse struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}
