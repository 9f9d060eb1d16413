package domain

import (
	"fmt"
	"strings"
	"time"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

const maxMessageContent = 10000

// MessageFields carries the raw candidate values handed to NewMessage.
type MessageFields struct {
	ID          string            `json:"id" validate:"required"`
	ChatID      string            `json:"chat_id" validate:"required"`
	SenderID    string            `json:"sender_id" validate:"required"`
	Content     string            `json:"content"`
	Type        MessageType       `json:"type" validate:"oneof=text image file system"`
	Status      MessageStatus     `json:"status" validate:"oneof=sending sent delivered read failed"`
	Timestamp   time.Time         `json:"timestamp"`
	DeliveredAt *time.Time        `json:"delivered_at"`
	ReadAt      *time.Time        `json:"read_at"`
	Attachment  *AttachmentFields `json:"attachment"`
}

// Message is a validated, immutable chat event. Status follows
// sending → {sent, failed}, sent → delivered → read, with read also
// reachable straight from sent. Read and failed are terminal; a resend
// creates a new Message.
type Message struct {
	ID          string
	ChatID      string
	SenderID    string
	Content     string
	Type        MessageType
	Status      MessageStatus
	Timestamp   time.Time
	DeliveredAt *time.Time
	ReadAt      *time.Time
	Attachment  *Attachment
}

// NewMessage validates and normalizes the candidate fields, reporting
// every broken rule at once.
func NewMessage(f MessageFields) (Message, Violations) {
	f.ID = strings.TrimSpace(f.ID)
	f.ChatID = strings.TrimSpace(f.ChatID)
	f.SenderID = strings.TrimSpace(f.SenderID)
	f.Content = strings.TrimSpace(f.Content)

	violations := fieldViolations(validate.Struct(f))
	now := time.Now().UTC()

	if f.Type == MessageText && f.Content == "" {
		violations = append(violations, "content is required for text messages")
	}
	if len([]rune(f.Content)) > maxMessageContent {
		violations = append(violations, fmt.Sprintf("content must be at most %d characters", maxMessageContent))
	}
	switch {
	case f.Timestamp.IsZero():
		violations = append(violations, "timestamp is required")
	case inFuture(f.Timestamp, now):
		violations = append(violations, "timestamp must not be in the future")
	}
	if f.DeliveredAt != nil && !f.Timestamp.IsZero() && f.DeliveredAt.Before(f.Timestamp) {
		violations = append(violations, "delivered_at must not precede timestamp")
	}
	if f.ReadAt != nil && f.DeliveredAt != nil && f.ReadAt.Before(*f.DeliveredAt) {
		violations = append(violations, "read_at must not precede delivered_at")
	}
	if f.ReadAt != nil && f.DeliveredAt == nil {
		violations = append(violations, "read_at requires delivered_at")
	}
	if f.Status == StatusDelivered && f.DeliveredAt == nil {
		violations = append(violations, "delivered status requires delivered_at")
	}
	if f.Status == StatusRead && f.ReadAt == nil {
		violations = append(violations, "read status requires read_at")
	}

	needsAttachment := f.Type == MessageImage || f.Type == MessageFile
	var attachment *Attachment
	switch {
	case needsAttachment && f.Attachment == nil:
		violations = append(violations, fmt.Sprintf("attachment is required for %s messages", f.Type))
	case !needsAttachment && f.Attachment != nil:
		violations = append(violations, fmt.Sprintf("attachment is not allowed for %s messages", f.Type))
	case f.Attachment != nil:
		built, attachmentViolations := newAttachment(*f.Attachment)
		for _, violation := range attachmentViolations {
			violations = append(violations, "attachment: "+violation)
		}
		if f.Type == MessageImage && built != nil && !strings.HasPrefix(built.MimeType, "image/") {
			violations = append(violations, "attachment: mime_type must be an image type for image messages")
		}
		attachment = built
	}

	if !violations.OK() {
		return Message{}, violations
	}
	return Message{
		ID:          f.ID,
		ChatID:      f.ChatID,
		SenderID:    f.SenderID,
		Content:     f.Content,
		Type:        f.Type,
		Status:      f.Status,
		Timestamp:   f.Timestamp,
		DeliveredAt: f.DeliveredAt,
		ReadAt:      f.ReadAt,
		Attachment:  attachment,
	}, nil
}

// MarkSent moves a sending message to sent. Any other state is a no-op.
func (m Message) MarkSent() Message {
	if m.Status != StatusSending {
		return m
	}
	m.Status = StatusSent
	return m
}

// MarkFailed moves a sending message to the terminal failed state.
// A failed message is never resurrected; a resend creates a new one.
func (m Message) MarkFailed() Message {
	if m.Status != StatusSending {
		return m
	}
	m.Status = StatusFailed
	return m
}

// MarkDelivered stamps delivery on a sent message. Already read,
// failed or still-sending messages are a no-op.
func (m Message) MarkDelivered(now time.Time) Message {
	if m.Status != StatusSent {
		return m
	}
	at := now
	m.DeliveredAt = &at
	m.Status = StatusDelivered
	return m
}

// MarkRead stamps the read time on a sent or delivered message. Reading
// implies delivery: a missing DeliveredAt is backfilled with the same
// instant as ReadAt.
func (m Message) MarkRead(now time.Time) Message {
	if m.Status != StatusSent && m.Status != StatusDelivered {
		return m
	}
	if m.DeliveredAt == nil {
		delivered := now
		m.DeliveredAt = &delivered
	}
	read := now
	m.ReadAt = &read
	m.Status = StatusRead
	return m
}
