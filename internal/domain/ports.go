package domain

import (
	"context"
	"errors"
)

// ErrNotConnected is reported by Send when a role has no live connection.
var ErrNotConnected = errors.New("role not connected")

// LLMClient defines how the relay talks to a completion backend.
type LLMClient interface {
	GenerateReply(ctx context.Context, userMessage string, convCtx ConversationContext) (string, error)
}

// ConversationContext gives the backend a compact view of the conversation:
// the derived summary plus a bounded window of prior turns.
type ConversationContext struct {
	Category         Category
	LastUserQuestion string
	LastPeerReply    string
	RecentKeywords   []string
	History          []*Message // bounded tail, oldest first
}

// Registry is the relay engine's view of the connection slots. A send to a
// dead or missing handle returns an error; it never panics and never queues.
type Registry interface {
	Send(role Role, env Envelope) error
	Broadcast(env Envelope, exclude Role)
	IsConnected(role Role) bool
}
