package entity

import (
	"time"
)

type MessageType string

// Group messages carry a content classification.
const (
	MessageTypeGeneral      MessageType = "general"
	MessageTypeTask         MessageType = "task"
	MessageTypeAlert        MessageType = "alert"
	MessageTypeAnnouncement MessageType = "announcement"
)

// Direct messages carry a media kind.
const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeFile  MessageType = "file"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// MessageState is local to a chat session and never persisted.
type MessageState string

const (
	MessageStatePending   MessageState = "pending"
	MessageStateConfirmed MessageState = "confirmed"
	MessageStateFailed    MessageState = "failed"
)

// PendingIDPrefix keys locally synthesized messages. Identity checks use State, not the prefix.
const PendingIDPrefix = "temp_"

type Message struct {
	ID            string      `json:"id" firestore:"id"`
	ClientID      string      `json:"client_id" firestore:"clientId"`
	SiteID        string      `json:"site_id" firestore:"siteId"`
	SenderID      string      `json:"sender_id" firestore:"senderId"`
	SenderName    string      `json:"sender_name" firestore:"senderName"`
	SenderEmail   string      `json:"sender_email" firestore:"senderEmail"`
	RecipientID   string      `json:"recipient_id,omitempty" firestore:"recipientId,omitempty"`
	RecipientName string      `json:"recipient_name,omitempty" firestore:"recipientName,omitempty"`
	Participants  []string    `json:"participants,omitempty" firestore:"participants,omitempty"`
	PairKey       string      `json:"-" firestore:"pairKey,omitempty"`
	Content       string      `json:"content" firestore:"content"`
	Type          MessageType `json:"type" firestore:"type"`
	Priority      Priority    `json:"priority,omitempty" firestore:"priority,omitempty"`
	Attachments   []string    `json:"attachments" firestore:"attachments"`
	CreatedAt     time.Time   `json:"created_at" firestore:"createdAt,serverTimestamp"`
	ReadBy        []string    `json:"read_by" firestore:"readBy"`
	ReadAt        *time.Time  `json:"read_at,omitempty" firestore:"readAt,omitempty"`

	State     MessageState `json:"state" firestore:"-"`
	LocalTime time.Time    `json:"local_time,omitempty" firestore:"-"`
	Error     string       `json:"error,omitempty" firestore:"-"`
}

// NewPendingMessage builds the locally visible copy of a message that has not reached the store yet.
func NewPendingMessage(scope Scope, sender UserSnapshot, recipient *UserSnapshot, clientID, content string, msgType MessageType, priority Priority, attachments []string, now time.Time) *Message {
	msg := &Message{
		ID:          PendingIDPrefix + clientID,
		ClientID:    clientID,
		SiteID:      scope.SiteID,
		SenderID:    sender.ID,
		SenderName:  sender.Name,
		SenderEmail: sender.Email,
		Content:     content,
		Type:        msgType,
		Priority:    priority,
		Attachments: append([]string(nil), attachments...),
		ReadBy:      []string{sender.ID},
		State:       MessageStatePending,
		LocalTime:   now,
	}

	if scope.IsDirect() {
		msg.Priority = ""
		msg.Participants = SortedPair(scope.SelfID, scope.OtherUserID)
		msg.PairKey = scope.PairKey()
		if recipient != nil {
			msg.RecipientID = recipient.ID
			msg.RecipientName = recipient.Name
		} else {
			msg.RecipientID = scope.OtherUserID
		}
	}

	return msg
}

func (m *Message) IsPending() bool {
	return m.State == MessageStatePending
}

func (m *Message) IsFailed() bool {
	return m.State == MessageStateFailed
}

// IsLocal reports whether the message exists only in a session (pending or failed).
func (m *Message) IsLocal() bool {
	return m.State == MessageStatePending || m.State == MessageStateFailed
}

func (m *Message) IsDirect() bool {
	return m.RecipientID != ""
}

// SortTime is the ordering key: server time when confirmed, local time while
// local, and the zero epoch when no timestamp exists yet.
func (m *Message) SortTime() time.Time {
	if m.IsLocal() {
		if m.LocalTime.IsZero() {
			return time.Unix(0, 0)
		}
		return m.LocalTime
	}
	if m.CreatedAt.IsZero() {
		return time.Unix(0, 0)
	}
	return m.CreatedAt
}

func (m *Message) IsReadBy(userID string) bool {
	for _, reader := range m.ReadBy {
		if reader == userID {
			return true
		}
	}
	return false
}

func (m *Message) Clone() *Message {
	c := *m
	c.Participants = append([]string(nil), m.Participants...)
	c.Attachments = append([]string(nil), m.Attachments...)
	c.ReadBy = append([]string(nil), m.ReadBy...)
	if m.ReadAt != nil {
		readAt := *m.ReadAt
		c.ReadAt = &readAt
	}
	return &c
}
