package domain

import "time"

type MessageID string

// Role identifies who produced a message or owns a connection slot.
type Role string

const (
	RolePhone     Role = "phone"
	RoleCursor    Role = "cursor"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Other returns the peer on the far side of a role's channel.
// Only phone and cursor own connection slots.
func (r Role) Other() Role {
	if r == RolePhone {
		return RoleCursor
	}
	return RolePhone
}

// Category is the coarse topic the conversation currently sits in.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryDebugging   Category = "debugging"
	CategoryCoding      Category = "coding"
	CategoryExplanation Category = "explanation"
)

type Timestamp = time.Time
