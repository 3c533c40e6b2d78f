package entity

import "time"

// Message is a single entry in the community room timeline.
type Message struct {
	ID            int64
	Sender        string
	Text          string
	AttachmentKey string
	Pinned        bool
	CreatedAt     time.Time
}

// Attachment describes an uploaded object before it is referenced by a message.
type Attachment struct {
	Key         string
	ContentType string
	Size        int64
	URL         string
}
