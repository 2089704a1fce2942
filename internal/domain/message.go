package domain

import (
	"time"

	"github.com/google/uuid"
)

// KindText is the default message kind when a client sends no type.
const (
	KindText   = "text"
	KindSystem = "system"
	KindQuery  = "query"
)

// Message is one entry in the conversation ledger. It is immutable once
// created; ordering is defined by ledger position, not by Timestamp.
type Message struct {
	ID        MessageID
	Sender    Role
	Content   string
	Kind      string
	Timestamp Timestamp
}

// NewMessage stamps a message at the moment its content is finalized.
func NewMessage(sender Role, content, kind string) *Message {
	if kind == "" {
		kind = KindText
	}
	return &Message{
		ID:        MessageID(uuid.New().String()),
		Sender:    sender,
		Content:   content,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}
