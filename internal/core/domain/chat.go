package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type DocumentState string

const (
	DocStateActive     DocumentState = "active"
	DocStateSuperseded DocumentState = "superseded"
	DocStateArchived   DocumentState = "archived"
)

// RefKey identifies a citation target. Two references point at the same
// target iff filename and page match exactly; an empty page is its own key.
type RefKey struct {
	Filename string
	Page     string
}

// SourceReference is one (document, page, snippet, score) tuple returned
// alongside a generated answer.
type SourceReference struct {
	Filename        string        `json:"filename"`
	Page            string        `json:"page"`
	ContentSnippet  string        `json:"content_snippet"`
	RelevanceScore  float64       `json:"relevance_score"`
	LegacyScore     float64       `json:"legacy_score,omitempty"`
	DocumentStatus  DocumentState `json:"document_status,omitempty"`
	UploadTimestamp time.Time     `json:"upload_timestamp,omitempty"`
}

func (s SourceReference) Key() RefKey {
	return RefKey{Filename: s.Filename, Page: s.Page}
}

// Score prefers the relevance score and falls back to the legacy field.
func (s SourceReference) Score() float64 {
	if s.RelevanceScore != 0 {
		return s.RelevanceScore
	}
	return s.LegacyScore
}

// Message is immutable once appended, except the in-flight assistant
// placeholder which is replaced wholesale when the real answer arrives.
type Message struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content"`
	Timestamp  time.Time         `json:"timestamp"`
	Confidence float64           `json:"confidence,omitempty"`
	Sources    []SourceReference `json:"sources,omitempty"`
	Pending    bool              `json:"pending,omitempty"`
}

type Chat struct {
	ChatID       string    `json:"chat_id"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	MessageCount int       `json:"message_count"`
}

// ChatMeta is the summary subset the server reports without message bodies.
type ChatMeta struct {
	ChatID       string    `json:"chat_id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}
