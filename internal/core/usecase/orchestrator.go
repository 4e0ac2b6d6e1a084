package usecase

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vqhuy/docchat/internal/core/domain"
	"github.com/vqhuy/docchat/internal/core/ports"
	"github.com/vqhuy/docchat/internal/core/state"
)

// Orchestrator sequences session, upload, ingest and ask flows against the
// server and owns the client-resident caches. All state is mutated from a
// single goroutine; event handlers run to completion before yielding, and
// re-entrant invocations of an in-flight action are rejected via coarse busy
// flags, never queued.
type Orchestrator struct {
	api    ports.AssistantService
	tokens ports.TokenStore
	prober ports.PageProber
	marker ports.CitationMarker
	notify ports.Notifier
	dialog ports.Dialog
	log    *slog.Logger

	registry *state.Registry
	chats    *state.ChatStore
	files    *state.FileList

	activeSession string
	canAsk        bool

	isUploading bool
	isIngesting bool
	isAsking    bool
}

func NewOrchestrator(
	api ports.AssistantService,
	tokens ports.TokenStore,
	prober ports.PageProber,
	marker ports.CitationMarker,
	notify ports.Notifier,
	dialog ports.Dialog,
	log *slog.Logger,
) *Orchestrator {
	if notify == nil {
		notify = nopNotifier{}
	}
	if dialog == nil {
		dialog = &terminalDialog{in: bufio.NewReader(os.Stdin), out: os.Stderr}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		api:      api,
		tokens:   tokens,
		prober:   prober,
		marker:   marker,
		notify:   notify,
		dialog:   dialog,
		log:      log,
		registry: state.NewRegistry(),
		chats:    state.NewChatStore(chatLoader{api}),
		files:    state.NewFileList(),
	}
}

// chatLoader adapts the assistant service to the chat store's loader port.
type chatLoader struct {
	api ports.AssistantService
}

func (l chatLoader) GetChat(ctx context.Context, sessionID, chatID string) (*domain.Chat, error) {
	return l.api.GetChat(ctx, sessionID, chatID)
}

// EnsureSession returns the active session, restoring a persisted one when
// possible and creating a new one otherwise. Creation is idempotent: an
// existing session is reused, never replaced.
func (o *Orchestrator) EnsureSession(ctx context.Context) (*domain.SessionSummary, error) {
	if o.activeSession != "" {
		if summary, ok := o.registry.Get(o.activeSession); ok {
			return summary, nil
		}
	}

	if id, ok := o.tokens.Get(); ok && id != "" {
		if err := o.SwitchSession(ctx, id); err == nil {
			summary, _ := o.registry.Get(id)
			return summary, nil
		} else if !domain.IsKind(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		// The persisted session expired server-side; fall through and
		// create a fresh one.
		o.tokens.Clear()
	}

	created, err := o.api.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	summary := o.registry.Upsert(domain.SessionPatch{
		SessionID: created.SessionID,
		Title:     domain.StringPtr(created.Title),
		CreatedAt: domain.TimePtr(created.CreatedAt),
		UpdatedAt: domain.TimePtr(created.CreatedAt),
	})
	o.activeSession = created.SessionID
	o.canAsk = false
	o.files.Reset()
	o.chats.Reset()
	o.tokens.Put(created.SessionID)
	o.log.Info("session_created", "session_id", created.SessionID)
	return summary, nil
}

// SwitchSession loads the authoritative session detail, rebuilds the chat
// cache limited to the session's single chat, restores the file list and
// recomputes ask-ability from the server-reported flag.
func (o *Orchestrator) SwitchSession(ctx context.Context, sessionID string) error {
	detail, err := o.api.SessionDetail(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session detail: %w", err)
	}

	patch := domain.SessionPatch{
		SessionID: sessionID,
		Title:     domain.StringPtr(detail.Title),
		Docs:      append([]domain.DocumentInfo{}, detail.ManifestDocs...),
	}
	if !detail.CreatedAt.IsZero() {
		patch.CreatedAt = domain.TimePtr(detail.CreatedAt)
	}
	if !detail.UpdatedAt.IsZero() {
		patch.UpdatedAt = domain.TimePtr(detail.UpdatedAt)
	}

	chatIDs := make([]string, 0, len(detail.Chats))
	for _, meta := range detail.Chats {
		chatIDs = append(chatIDs, meta.ChatID)
	}
	if len(detail.Chats) > 0 {
		primary := detail.Chats[0]
		patch.PrimaryChatID = domain.StringPtr(primary.ChatID)
		patch.MessageCount = domain.IntPtr(primary.MessageCount)
	}
	o.registry.Upsert(patch)

	o.chats.Retain(chatIDs)
	for _, meta := range detail.Chats {
		o.chats.MergeMeta(meta, nil)
	}

	o.files.Replace(rebuildFileEntries(detail))
	o.activeSession = sessionID
	o.canAsk = detail.CanAsk
	o.tokens.Put(sessionID)
	o.log.Info("session_switched", "session_id", sessionID, "can_ask", detail.CanAsk)
	return nil
}

// SyncChats refreshes the chat summary list for the active session, dropping
// message caches for chats the server no longer reports.
func (o *Orchestrator) SyncChats(ctx context.Context) error {
	if o.activeSession == "" {
		return domain.WrapError(domain.ErrInvalidInput, "sync chats", errors.New("no active session"))
	}

	metas, err := o.api.ListChats(ctx, o.activeSession)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	ids := make([]string, 0, len(metas))
	for _, meta := range metas {
		ids = append(ids, meta.ChatID)
	}
	o.chats.Retain(ids)
	for _, meta := range metas {
		o.chats.MergeMeta(meta, nil)
	}
	if len(metas) > 0 {
		o.registry.Upsert(domain.SessionPatch{
			SessionID:     o.activeSession,
			PrimaryChatID: domain.StringPtr(metas[0].ChatID),
			MessageCount:  domain.IntPtr(metas[0].MessageCount),
		})
	}
	return nil
}

// RenameActiveSession renames the active session, collecting the title via
// the dialog when none is supplied. A declined dialog cancels silently.
func (o *Orchestrator) RenameActiveSession(ctx context.Context, title string) error {
	summary, err := o.requireActive("rename session")
	if err != nil {
		return err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		entered, ok := o.dialog.Input("New session title", summary.Title)
		if !ok {
			return nil
		}
		title = strings.TrimSpace(entered)
	}
	if title == "" {
		return domain.WrapError(domain.ErrInvalidInput, "rename session", errors.New("empty title"))
	}

	renamed, err := o.api.RenameSession(ctx, o.activeSession, title)
	if err != nil {
		o.notify.Notify("error", "Could not rename the session.")
		return fmt.Errorf("rename session: %w", err)
	}

	patch := domain.SessionPatch{
		SessionID: o.activeSession,
		Title:     domain.StringPtr(renamed.Title),
	}
	if !renamed.UpdatedAt.IsZero() {
		patch.UpdatedAt = domain.TimePtr(renamed.UpdatedAt)
	}
	o.registry.Upsert(patch)
	o.notify.Notify("info", "Session renamed.")
	return nil
}

// DeleteActiveSession deletes the active session after confirmation and
// activates the most-recently-updated remaining session, if any.
func (o *Orchestrator) DeleteActiveSession(ctx context.Context) error {
	summary, err := o.requireActive("delete session")
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("Delete session %q? Its documents and chat history will be removed.", summary.Title)
	if !o.dialog.Confirm(prompt) {
		return nil
	}

	if err := o.api.DeleteSession(ctx, o.activeSession); err != nil {
		o.notify.Notify("error", "Could not delete the session.")
		return fmt.Errorf("delete session: %w", err)
	}

	deleted := o.activeSession
	o.registry.Remove(deleted)
	o.tokens.Clear()
	o.chats.Reset()
	o.files.Reset()
	o.activeSession = ""
	o.canAsk = false
	o.notify.Notify("info", "Session deleted.")

	if next, ok := o.registry.MostRecent(); ok {
		if err := o.SwitchSession(ctx, next.SessionID); err != nil {
			o.log.Warn("activate_next_session_failed", "session_id", next.SessionID, "error", err)
		}
	}
	return nil
}

// ForgetSession drops the persisted token and local caches without touching
// the server, so the next EnsureSession creates a fresh session.
func (o *Orchestrator) ForgetSession() {
	o.tokens.Clear()
	o.chats.Reset()
	o.files.Reset()
	o.activeSession = ""
	o.canAsk = false
}

func (o *Orchestrator) Sessions() []domain.SessionSummary {
	return o.registry.List()
}

// ActiveSession returns the active session summary, if one is selected.
func (o *Orchestrator) ActiveSession() (*domain.SessionSummary, bool) {
	if o.activeSession == "" {
		return nil, false
	}
	return o.registry.Get(o.activeSession)
}

// CanAsk reflects the server-reported capability flag from the last session
// detail fetch. It is never derived from local file status alone.
func (o *Orchestrator) CanAsk() bool {
	return o.canAsk
}

func (o *Orchestrator) Files() []*domain.FileEntry {
	return o.files.Entries()
}

// Chats exposes the chat cache to the rendering layer.
func (o *Orchestrator) Chats() *state.ChatStore {
	return o.chats
}

func (o *Orchestrator) requireActive(op string) (*domain.SessionSummary, error) {
	if o.activeSession == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, op, errors.New("no active session"))
	}
	summary, ok := o.registry.Get(o.activeSession)
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, op, errors.New(o.activeSession))
	}
	return summary, nil
}

func (o *Orchestrator) acquire(flag *bool, op string) error {
	if *flag {
		return domain.WrapError(domain.ErrBusy, op, errors.New("previous invocation still running"))
	}
	*flag = true
	return nil
}

func rebuildFileEntries(detail *domain.SessionDetail) []*domain.FileEntry {
	manifest := make(map[string]domain.DocumentInfo, len(detail.ManifestDocs))
	for _, doc := range detail.ManifestDocs {
		manifest[doc.DocName] = doc
	}

	entries := make([]*domain.FileEntry, 0, len(detail.Files))
	for _, file := range detail.Files {
		entry := &domain.FileEntry{
			ID:            file.DocName,
			DisplayName:   file.DocName,
			SizeBytes:     file.SizeBytes,
			Status:        domain.FileStatusUploaded,
			ServerDocName: file.DocName,
			PageCount:     file.PageCount,
			ChunkCount:    file.ChunkCount,
		}
		if doc, ok := manifest[file.DocName]; ok {
			entry.Status = domain.FileStatusIngested
			if entry.PageCount == 0 {
				entry.PageCount = doc.PageCount
			}
			if entry.ChunkCount == 0 {
				entry.ChunkCount = doc.ChunkCount
			}
		} else if file.Ingested {
			entry.Status = domain.FileStatusIngested
		}
		entries = append(entries, entry)
	}
	return entries
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

// terminalDialog is the blocking-prompt fallback used when no dialog
// infrastructure is wired.
type terminalDialog struct {
	in  *bufio.Reader
	out io.Writer
}

func (d *terminalDialog) Confirm(message string) bool {
	fmt.Fprintf(d.out, "%s [y/N]: ", message)
	line, err := d.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (d *terminalDialog) Input(label, initial string) (string, bool) {
	if initial != "" {
		fmt.Fprintf(d.out, "%s [%s]: ", label, initial)
	} else {
		fmt.Fprintf(d.out, "%s: ", label)
	}
	line, err := d.in.ReadString('\n')
	if err != nil {
		return "", false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return initial, initial != ""
	}
	return line, true
}
