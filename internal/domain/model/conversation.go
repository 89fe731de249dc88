package model

// Role tags one side of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn in a conversation. Conversations are append-only;
// a message is never mutated after being appended.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// QueuedRequest is one pending prompt waiting in a session's request queue.
// It is consumed exactly once by the drain loop and never persisted; loss on
// crash is acceptable.
type QueuedRequest struct {
	ID           string // ulid, assigned at enqueue time
	MessageID    int    // telegram message that carried the prompt, 0 if none
	Model        string
	Content      string
	NumSubAgents int
}

// CompletionResult is produced once per drain iteration. A nil Completion
// signals a no-op call that must not be appended to history or charged.
type CompletionResult struct {
	Completion *ChatMessage
	Usage      int     // total tokens consumed
	PriceCents float64 // cost in cents
}
