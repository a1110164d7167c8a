package model

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry in the append-only conversation log. Metadata
// carries the structured update serialized alongside assistant replies.
type ChatMessage struct {
	Role      Role              `json:"role"`
	Text      string            `json:"text"`
	Metadata  *StructuredUpdate `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
