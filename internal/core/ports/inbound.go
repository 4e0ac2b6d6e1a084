package ports

import (
	"context"

	"github.com/vqhuy/docchat/internal/core/domain"
)

// SessionController is the inbound contract for session lifecycle operations.
type SessionController interface {
	EnsureSession(ctx context.Context) (*domain.SessionSummary, error)
	SwitchSession(ctx context.Context, sessionID string) error
	RenameActiveSession(ctx context.Context, title string) error
	DeleteActiveSession(ctx context.Context) error
	Sessions() []domain.SessionSummary
}

// DocumentIntake is the inbound contract for file intake, upload and ingest.
type DocumentIntake interface {
	AddFiles(ctx context.Context, paths []string) ([]*domain.FileEntry, error)
	UploadPending(ctx context.Context) error
	Ingest(ctx context.Context, ocr bool) (*domain.IngestResult, error)
	DeleteFile(ctx context.Context, docName string) error
	Files() []*domain.FileEntry
}

// QuestionService is the inbound contract for asking against the active chat.
type QuestionService interface {
	Ask(ctx context.Context, query string) (*AskOutcome, error)
	CanAsk() bool
}

// AskOutcome is the client-side result of one ask round trip after the
// forced history reload completed.
type AskOutcome struct {
	Answer       string
	MarkedAnswer string
	Confidence   float64
	Refs         []domain.CitationRef
	Citations    []domain.SourceReference
	LatencyMS    int64
	Chat         *domain.Chat
}
