package core

// ModelID names a backend model. It is opaque to the core and never validated.
type ModelID string

// String implements fmt.Stringer.
func (id ModelID) String() string { return string(id) }

// Conversation roles understood by the provider adapters.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation. The ordered slice of messages is sent
// unmodified to every model of a fan-out.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system role message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage builds a user role message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage builds an assistant role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ModelIDs converts plain strings into model identifiers preserving order.
func ModelIDs(names ...string) []ModelID {
	ids := make([]ModelID, len(names))
	for i, n := range names {
		ids[i] = ModelID(n)
	}
	return ids
}
