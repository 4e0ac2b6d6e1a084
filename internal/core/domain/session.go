package domain

import "time"

// DocumentInfo is one ingested document as reported by the server manifest.
type DocumentInfo struct {
	DocName    string `json:"doc_name"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
}

// SessionSummary is the registry's view of one server session. One summary
// exists per distinct SessionID.
type SessionSummary struct {
	SessionID     string         `json:"session_id"`
	Title         string         `json:"title"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	MessageCount  int            `json:"message_count"`
	PrimaryChatID string         `json:"primary_chat_id"`
	DocumentCount int            `json:"document_count"`
	Docs          []DocumentInfo `json:"docs,omitempty"`
}

// SessionPatch is a partial summary for registry upserts. Nil fields inherit
// the previous value; non-nil fields overwrite. Docs follows slice semantics:
// nil means absent, a non-nil empty slice is an explicit empty list and
// overwrites.
type SessionPatch struct {
	SessionID     string
	Title         *string
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
	MessageCount  *int
	PrimaryChatID *string
	DocumentCount *int
	Docs          []DocumentInfo
}

func StringPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }

func TimePtr(v time.Time) *time.Time { return &v }
