package models

import "strings"

// QueryClass is the routing decision for one chat query.
type QueryClass int

const (
	// ClassInContext answers from conversational history alone. Default.
	ClassInContext QueryClass = iota
	// ClassRetrievalRequired answers with record text retrieved from the vector index.
	ClassRetrievalRequired
	// ClassEmailDraft drafts an email from the query and history.
	ClassEmailDraft
)

// Classification tokens the classifier prompt asks the model to emit.
const (
	TokenInContext         = "II-C"
	TokenRetrievalRequired = "RAG-II"
	TokenEmailDraft        = "ED"
)

// String returns the class name for logging and API responses.
func (c QueryClass) String() string {
	switch c {
	case ClassRetrievalRequired:
		return "retrieval"
	case ClassEmailDraft:
		return "email_draft"
	default:
		return "in_context"
	}
}

// ParseQueryClass maps a raw classifier response to a QueryClass by substring
// containment. Priority order is fixed: retrieval first, then email draft;
// anything else falls through to in-context, so an off-script model response
// still yields a deterministic route.
func ParseQueryClass(token string) QueryClass {
	switch {
	case strings.Contains(token, TokenRetrievalRequired):
		return ClassRetrievalRequired
	case strings.Contains(token, TokenEmailDraft):
		return ClassEmailDraft
	default:
		return ClassInContext
	}
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is an append-only message history for one session. It is never
// pruned; bounding memory growth is left to the surrounding application.
type Conversation struct {
	messages []ChatMessage
}

// Append records one user/assistant exchange.
func (c *Conversation) Append(userInput, assistantOutput string) {
	c.messages = append(c.messages,
		ChatMessage{Role: "user", Content: userInput},
		ChatMessage{Role: "assistant", Content: assistantOutput},
	)
}

// Messages returns the history in order.
func (c *Conversation) Messages() []ChatMessage {
	return c.messages
}

// Len returns the number of stored messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// History renders the conversation as prompt text, one "role: content" line
// per message. Empty string for a fresh conversation.
func (c *Conversation) History() string {
	if len(c.messages) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, m := range c.messages {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
