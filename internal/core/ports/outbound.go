package ports

import (
	"context"
	"io"

	"github.com/vqhuy/docchat/internal/core/domain"
)

// FileUpload is one local file handed to the upload call.
type FileUpload struct {
	Name      string
	SizeBytes int64
	Data      io.Reader
}

// AssistantService is the consumed contract of the document-chat server.
// All responses are plain structured records; absent fields decode to their
// documented defaults and never fail reconciliation wholesale.
type AssistantService interface {
	CreateSession(ctx context.Context) (*domain.SessionSummary, error)
	UploadFiles(ctx context.Context, sessionID string, files []FileUpload) (*domain.UploadResult, error)
	Ingest(ctx context.Context, sessionID string, ocr bool) (*domain.IngestResult, error)
	Ask(ctx context.Context, sessionID, chatID, query string) (*domain.AskResult, error)
	SessionDetail(ctx context.Context, sessionID string) (*domain.SessionDetail, error)
	ListChats(ctx context.Context, sessionID string) ([]domain.ChatMeta, error)
	GetChat(ctx context.Context, sessionID, chatID string) (*domain.Chat, error)
	RenameSession(ctx context.Context, sessionID, title string) (*domain.SessionSummary, error)
	RenameChat(ctx context.Context, sessionID, chatID, title string) (*domain.ChatMeta, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteFile(ctx context.Context, sessionID, docName string) error
	Health(ctx context.Context) (string, error)
}

// TokenStore persists the active session identifier with a fixed expiry,
// the equivalent of the web client's browser-storage slot.
type TokenStore interface {
	Put(sessionID string)
	Get() (string, bool)
	Clear()
}

// PageProber inspects a local document ahead of upload.
type PageProber interface {
	PageCount(path string) (int, error)
}

// Notifier surfaces transient user-facing notices.
type Notifier interface {
	Notify(level, message string)
}

// Dialog collects confirmation and short text input for destructive
// operations. Callers fall back to a blocking terminal prompt when no dialog
// infrastructure is wired.
type Dialog interface {
	Confirm(message string) bool
	Input(label, initial string) (string, bool)
}

// CitationMarker resolves citation tokens embedded in answer text and returns
// the text with each recognized token wrapped in an addressable marker.
type CitationMarker interface {
	Annotate(text string) ([]domain.CitationRef, string)
}
