package domain

import "time"

// AcceptedFile is one server-accepted upload from a batch response.
type AcceptedFile struct {
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	SizeBytes    int64  `json:"size_bytes"`
}

// FileError is one per-file rejection from a batch response.
type FileError struct {
	OriginalName string `json:"original_name"`
	Reason       string `json:"reason"`
}

// UploadResult is the server's per-batch upload breakdown.
type UploadResult struct {
	SessionID string         `json:"session_id"`
	Accepted  []AcceptedFile `json:"accepted"`
	Errors    []FileError    `json:"errors"`
}

// IngestedDoc reports the ingestion outcome for one uploaded document.
type IngestedDoc struct {
	DocName    string `json:"doc_name"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
}

type IngestResult struct {
	IngestedDocs []IngestedDoc `json:"ingested_docs"`
	TotalChunks  int           `json:"total_chunks"`
	Message      string        `json:"message,omitempty"`
}

// AskResult is the server's answer to one question, including the chat
// summary after the turn was recorded.
type AskResult struct {
	Chat       ChatMeta          `json:"chat"`
	Answer     string            `json:"answer"`
	Confidence float64           `json:"confidence"`
	Citations  []SourceReference `json:"citations"`
	LatencyMS  int64             `json:"latency_ms"`
}

// SessionFile is one server-side file descriptor from a session detail.
type SessionFile struct {
	DocName    string `json:"doc_name"`
	SizeBytes  int64  `json:"size_bytes"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
	Ingested   bool   `json:"ingested"`
}

// SessionDetail is the authoritative server state for one session.
type SessionDetail struct {
	SessionID    string         `json:"session_id"`
	Title        string         `json:"title"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Files        []SessionFile  `json:"files"`
	Chats        []ChatMeta     `json:"chats"`
	ManifestDocs []DocumentInfo `json:"manifest_docs"`
	CanAsk       bool           `json:"can_ask"`
}
