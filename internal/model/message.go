package model

type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Message is one entry of a conversation. Timestamp is ISO-8601.
type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Author    Author `json:"author"`
	Timestamp string `json:"timestamp"`
}

// Conversation is a snapshot of a conversation; an empty ID marks a draft.
type Conversation struct {
	ID       string    `json:"id,omitempty"`
	Messages []Message `json:"messages"`
}

func (c Conversation) IsDraft() bool {
	return c.ID == ""
}

type ConversationSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}
