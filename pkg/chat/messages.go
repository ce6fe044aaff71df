package chat

import "strings"

// Message is one element of a session transcript. ID is the server-side
// identifier and is 0 until the message has been persisted; messages
// synthesized locally from streaming chunks carry no ID.
type Message struct {
	ID              int64    `json:"id,omitempty"`
	Role            string   `json:"role"`
	Content         string   `json:"content"`
	Images          []string `json:"images,omitempty"`
	ThinkingContent string   `json:"thinking_content,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

func NewUserMessage(content string, images []string) Message {
	return Message{
		Role:    RoleUser,
		Content: strings.TrimSpace(content),
		Images:  images,
	}
}

func NewAssistantMessage(content string) Message {
	return Message{
		Role:    RoleAssistant,
		Content: content,
	}
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// IsPersisted reports whether the server has assigned this message an id
func (m Message) IsPersisted() bool {
	return m.ID != 0
}

func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}
