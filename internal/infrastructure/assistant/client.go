package assistant

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vqhuy/docchat/internal/core/domain"
	"github.com/vqhuy/docchat/internal/core/ports"
	"github.com/vqhuy/docchat/internal/infrastructure/resilience"
	"github.com/vqhuy/docchat/internal/observability/metrics"
)

// Client talks the document-chat server protocol. Every call is rate limited,
// retried per the resilience policy and classified into domain error kinds at
// the boundary, so the state layer never sees raw transport errors.
type Client struct {
	baseURL    string
	service    string
	httpClient *http.Client
	uploader   *http.Client
	exec       *resilience.Executor
	limiter    *rate.Limiter
	metrics    *metrics.ClientMetrics
	log        *slog.Logger
}

type Options struct {
	Timeout           time.Duration
	UploadTimeout     time.Duration
	RequestsPerSecond float64
	Burst             int
	Resilience        resilience.Config
	Metrics           *metrics.ClientMetrics
	Logger            *slog.Logger
}

func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 5 * time.Minute
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		service:    "docchat",
		httpClient: &http.Client{Timeout: opts.Timeout},
		uploader:   &http.Client{Timeout: opts.UploadTimeout},
		exec:       resilience.NewExecutor(opts.Resilience),
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		metrics:    opts.Metrics,
		log:        opts.Logger,
	}
}

var _ ports.AssistantService = (*Client)(nil)

func (c *Client) CreateSession(ctx context.Context) (*domain.SessionSummary, error) {
	var out domain.SessionSummary
	err := c.call(ctx, "create_session", nil, func(ctx context.Context) error {
		return c.postJSON(ctx, "/sessions", struct{}{}, &out, "create_session")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UploadFiles(ctx context.Context, sessionID string, files []ports.FileUpload) (*domain.UploadResult, error) {
	// No retry loop here: the file readers are consumed by the first
	// attempt, and re-sending a half-received batch would double-ingest.
	done := c.metrics.RequestStarted()
	defer done()
	start := time.Now()

	var out domain.UploadResult
	err := c.postMultipart(ctx, "/upload", sessionID, files, &out, "upload")
	err = toDomainError("upload", domain.ErrSessionNotFound, err)
	c.metrics.RecordRequest(c.service, "upload", outcomeLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Ingest(ctx context.Context, sessionID string, ocr bool) (*domain.IngestResult, error) {
	payload := struct {
		SessionID string `json:"session_id"`
		OCR       bool   `json:"ocr"`
	}{SessionID: sessionID, OCR: ocr}

	var out domain.IngestResult
	err := c.call(ctx, "ingest", domain.ErrSessionNotFound, func(ctx context.Context) error {
		return c.postJSON(ctx, "/ingest", payload, &out, "ingest")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Ask(ctx context.Context, sessionID, chatID, query string) (*domain.AskResult, error) {
	payload := struct {
		SessionID string `json:"session_id"`
		ChatID    string `json:"chat_id,omitempty"`
		Query     string `json:"query"`
	}{SessionID: sessionID, ChatID: chatID, Query: query}

	var out askResponse
	err := c.call(ctx, "ask", domain.ErrSessionNotFound, func(ctx context.Context) error {
		return c.postJSON(ctx, "/ask", payload, &out, "ask")
	})
	if err != nil {
		return nil, err
	}

	result := &domain.AskResult{
		Chat:       out.Chat,
		Answer:     out.Answer,
		Confidence: out.Confidence,
		Citations:  make([]domain.SourceReference, 0, len(out.Citations)),
		LatencyMS:  out.LatencyMS,
	}
	for _, citation := range out.Citations {
		result.Citations = append(result.Citations, citation.toSourceReference())
	}
	c.metrics.RecordAnswer(out.Confidence, time.Duration(out.LatencyMS)*time.Millisecond)
	return result, nil
}

func (c *Client) SessionDetail(ctx context.Context, sessionID string) (*domain.SessionDetail, error) {
	var out domain.SessionDetail
	err := c.call(ctx, "session_detail", domain.ErrSessionNotFound, func(ctx context.Context) error {
		return c.getJSON(ctx, "/sessions/"+url.PathEscape(sessionID), &out, "session_detail")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListChats(ctx context.Context, sessionID string) ([]domain.ChatMeta, error) {
	var out struct {
		Chats []domain.ChatMeta `json:"chats"`
	}
	err := c.call(ctx, "list_chats", domain.ErrSessionNotFound, func(ctx context.Context) error {
		return c.getJSON(ctx, "/sessions/"+url.PathEscape(sessionID)+"/chats", &out, "list_chats")
	})
	if err != nil {
		return nil, err
	}
	return out.Chats, nil
}

func (c *Client) GetChat(ctx context.Context, sessionID, chatID string) (*domain.Chat, error) {
	var out domain.Chat
	err := c.call(ctx, "get_chat", domain.ErrChatNotFound, func(ctx context.Context) error {
		return c.getJSON(ctx, "/sessions/"+url.PathEscape(sessionID)+"/chats/"+url.PathEscape(chatID), &out, "get_chat")
	})
	if err != nil {
		return nil, err
	}
	if out.MessageCount == 0 {
		out.MessageCount = len(out.Messages)
	}
	return &out, nil
}

func (c *Client) RenameSession(ctx context.Context, sessionID, title string) (*domain.SessionSummary, error) {
	payload := struct {
		Title string `json:"title"`
	}{Title: title}

	var out domain.SessionSummary
	err := c.call(ctx, "rename_session", domain.ErrSessionNotFound, func(ctx context.Context) error {
		return c.patchJSON(ctx, "/sessions/"+url.PathEscape(sessionID), payload, &out, "rename_session")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenameChat(ctx context.Context, sessionID, chatID, title string) (*domain.ChatMeta, error) {
	payload := struct {
		Title string `json:"title"`
	}{Title: title}

	var out domain.ChatMeta
	err := c.call(ctx, "rename_chat", domain.ErrChatNotFound, func(ctx context.Context) error {
		return c.patchJSON(ctx, "/sessions/"+url.PathEscape(sessionID)+"/chats/"+url.PathEscape(chatID), payload, &out, "rename_chat")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.call(ctx, "delete_session", domain.ErrSessionNotFound, func(ctx context.Context) error {
		return c.deleteJSON(ctx, "/sessions/"+url.PathEscape(sessionID), "delete_session")
	})
}

func (c *Client) DeleteFile(ctx context.Context, sessionID, docName string) error {
	return c.call(ctx, "delete_file", domain.ErrSessionNotFound, func(ctx context.Context) error {
		return c.deleteJSON(ctx, "/sessions/"+url.PathEscape(sessionID)+"/docs/"+url.PathEscape(docName), "delete_file")
	})
}

func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	err := c.call(ctx, "health", nil, func(ctx context.Context) error {
		return c.getJSON(ctx, "/healthz", &out, "health")
	})
	if err != nil {
		return "", err
	}
	return out.Status, nil
}

// call runs one logical operation through the rate limiter and the resilience
// executor, then folds the outcome into domain error kinds.
func (c *Client) call(ctx context.Context, operation string, notFound error, fn func(context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	done := c.metrics.RequestStarted()
	defer done()
	start := time.Now()

	err := c.exec.Execute(ctx, operation, fn, classifyAssistantError)
	err = toDomainError(operation, notFound, err)
	c.metrics.RecordRequest(c.service, operation, outcomeLabel(err), time.Since(start))
	if err != nil {
		c.log.Warn("assistant_call_failed", "operation", operation, "error", err)
	}
	return err
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

type askResponse struct {
	Chat       domain.ChatMeta   `json:"chat"`
	Answer     string            `json:"answer"`
	Confidence float64           `json:"confidence"`
	Citations  []citationPayload `json:"citations"`
	LatencyMS  int64             `json:"latency_ms"`
}

// citationPayload tolerates both citation schemas the server has shipped:
// the legacy {doc, page, score, text_span} shape with an integer page and
// the current snake_case source-reference shape.
type citationPayload struct {
	Doc            string      `json:"doc"`
	Filename       string      `json:"filename"`
	Page           json.Number `json:"page"`
	Score          float64     `json:"score"`
	RelevanceScore float64     `json:"relevance_score"`
	TextSpan       string      `json:"text_span"`
	ContentSnippet string      `json:"content_snippet"`
	DocumentStatus string      `json:"document_status"`
}

func (p citationPayload) toSourceReference() domain.SourceReference {
	ref := domain.SourceReference{
		Filename:       p.Filename,
		Page:           p.Page.String(),
		ContentSnippet: p.ContentSnippet,
		RelevanceScore: p.RelevanceScore,
		LegacyScore:    p.Score,
		DocumentStatus: domain.DocumentState(p.DocumentStatus),
	}
	if ref.Filename == "" {
		ref.Filename = p.Doc
	}
	if ref.ContentSnippet == "" {
		ref.ContentSnippet = p.TextSpan
	}
	return ref
}
