package domain

// Turn roles as supplied by the caller.
const (
	RoleTurnUser      = "user"
	RoleTurnAssistant = "assistant"
)

// ConversationTurn is one prior message of the conversation, replayed by the
// caller on every request. Nothing is stored server-side between requests.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Answer is the final chat pipeline output.
type Answer struct {
	Response string   `json:"response"`
	URLs     []string `json:"urls"`
}
