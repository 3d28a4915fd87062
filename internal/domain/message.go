package domain

import "time"

// Role identifies which party produced a message.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Message is one finalized turn of dialogue. Messages are append-only and
// never hold partial transcript fragments. Phase is a snapshot of the
// session's phase at the moment the turn was finalized, not a back-reference.
type Message struct {
	ID        int64
	SessionID int64
	Role      Role
	Content   string
	Phase     Phase
	CreatedAt time.Time
}
