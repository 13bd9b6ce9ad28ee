// internal/models/message.go
package models

import "time"

// MessageType classifies a cooperative-internal message.
type MessageType string

const (
	MessageAnnouncement MessageType = "announcement"
	MessageAlert        MessageType = "alert"
	MessageReminder     MessageType = "reminder"
	MessageInformation  MessageType = "information"
)

// MessageStatus is the aggregate delivery state of a message.
// It is a single shared field, not a per-recipient state.
type MessageStatus string

const (
	MessageDraft     MessageStatus = "draft"
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
)

// Attachment is a file reference carried by a message or announcement.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// ReadReceipt records one member having read a message or announcement.
type ReadReceipt struct {
	MemberID   string    `json:"memberId"`
	MemberName string    `json:"memberName"`
	ReadAt     time.Time `json:"readAt"`
}

// Message is an organization-to-recipient(s) communication with its own
// send/delivery lifecycle, distinct from per-user notifications.
type Message struct {
	ID           string        `json:"id"`
	Subject      string        `json:"subject"`
	Content      string        `json:"content"`
	Type         MessageType   `json:"type"`
	Priority     Priority      `json:"priority"`
	Sender       string        `json:"sender"`
	SenderRole   string        `json:"senderRole"`
	Recipients   []string      `json:"recipients"`
	TargetGroups []string      `json:"targetGroups,omitempty"`
	Status       MessageStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	ScheduledAt  *time.Time    `json:"scheduledAt,omitempty"`
	DeliveredAt  *time.Time    `json:"deliveredAt,omitempty"`
	ReadAt       *time.Time    `json:"readAt,omitempty"`
	Attachments  []Attachment  `json:"attachments,omitempty"`
	ReadBy       []ReadReceipt `json:"readBy,omitempty"`
}
