package domain

import "time"

// Envelope types on the wire. Inbound payloads only carry content and an
// optional type; outbound envelopes are enriched with sender and timestamp.
const (
	EnvelopeSystem  = "system"
	EnvelopeMessage = "message"
	EnvelopeQuery   = "query"
)

// Envelope is the JSON object exchanged with both role channels.
type Envelope struct {
	Type        string `json:"type"`
	Sender      string `json:"sender,omitempty"`
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// SystemEnvelope wraps a relay-originated notice.
func SystemEnvelope(content string) Envelope {
	return Envelope{
		Type:      EnvelopeSystem,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// MessageEnvelope wraps a ledger message for delivery as a normal chat message.
func MessageEnvelope(msg *Message) Envelope {
	return Envelope{
		Type:        EnvelopeMessage,
		Sender:      string(msg.Sender),
		Content:     msg.Content,
		MessageType: msg.Kind,
		Timestamp:   msg.Timestamp.Format(time.RFC3339),
	}
}

// QueryEnvelope wraps an assistant sub-task addressed to the cursor side.
func QueryEnvelope(msg *Message) Envelope {
	env := MessageEnvelope(msg)
	env.Type = EnvelopeQuery
	return env
}
