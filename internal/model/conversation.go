package model

const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

// ConversationTurn is one prior exchange supplied by the caller. The
// engine treats supplied history as untrusted input, not as state it
// owns.
type ConversationTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
