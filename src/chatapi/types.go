package chatapi

import (
	"encoding/json"
	"time"
)

// AskRequest is the body of POST /v1/chat/ask.
type AskRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id"`
	StoryID  string `json:"story_id,omitempty"`
}

// Message roles as the backend reports them.
const (
	RoleUser   = "user"
	RoleBot    = "bot"
	RoleSystem = "system"
)

// Message is one persisted message of a conversation. A bot message may
// carry the artifacts generated during its turn alongside its text.
type Message struct {
	ID                 string           `json:"id"`
	Role               string           `json:"role"`
	Content            string           `json:"content"`
	SQLQuery           string           `json:"sql_query,omitempty"`
	SQLQueryResult     []map[string]any `json:"sql_query_result,omitempty"`
	ChartBuilderResult json.RawMessage  `json:"chart_builder_result,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Conversation is the full response of GET /v1/chat/conversations/{id}.
type Conversation struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// ConversationSummary is one entry of the paginated conversation listing.
type ConversationSummary struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	StoryID   string    `json:"story_id,omitempty"`
}

// ConversationPage is the response of GET /v1/chat/conversations.
type ConversationPage struct {
	Conversations []ConversationSummary `json:"conversations"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	Total         int                   `json:"total"`
}

// FeedbackRequest is the body of POST /v1/chat/feedback. MessageID is the
// backend message id, so feedback can only target reconciled turns.
type FeedbackRequest struct {
	MessageID string `json:"message_id"`
	Rating    string `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}
