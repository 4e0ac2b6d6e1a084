package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vqhuy/docchat/internal/core/domain"
	"github.com/vqhuy/docchat/internal/core/ports"
	"github.com/vqhuy/docchat/internal/infrastructure/markup"
)

type assistantFake struct {
	created    *domain.SessionSummary
	createErr  error
	uploadRes  *domain.UploadResult
	uploadErr  error
	ingestRes  *domain.IngestResult
	ingestErr  error
	askRes     *domain.AskResult
	askErr     error
	details    map[string]*domain.SessionDetail
	chat       *domain.Chat
	chatErr    error
	deleteErr  error
	deletedIDs []string

	onAsk      func()
	getCalls   int
	askCalls   int
	uploadSeen []ports.FileUpload
}

func (f *assistantFake) CreateSession(context.Context) (*domain.SessionSummary, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created == nil {
		f.created = &domain.SessionSummary{SessionID: "s-new", Title: "New session", CreatedAt: time.Now().UTC()}
	}
	return f.created, nil
}

func (f *assistantFake) UploadFiles(_ context.Context, _ string, files []ports.FileUpload) (*domain.UploadResult, error) {
	f.uploadSeen = files
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.uploadRes, nil
}

func (f *assistantFake) Ingest(context.Context, string, bool) (*domain.IngestResult, error) {
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	return f.ingestRes, nil
}

func (f *assistantFake) Ask(context.Context, string, string, string) (*domain.AskResult, error) {
	f.askCalls++
	if f.onAsk != nil {
		f.onAsk()
	}
	if f.askErr != nil {
		return nil, f.askErr
	}
	return f.askRes, nil
}

func (f *assistantFake) SessionDetail(_ context.Context, sessionID string) (*domain.SessionDetail, error) {
	detail, ok := f.details[sessionID]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "session detail", errors.New(sessionID))
	}
	return detail, nil
}

func (f *assistantFake) ListChats(context.Context, string) ([]domain.ChatMeta, error) {
	return nil, errors.New("not implemented")
}

func (f *assistantFake) GetChat(context.Context, string, string) (*domain.Chat, error) {
	f.getCalls++
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	if f.chat == nil {
		return &domain.Chat{}, nil
	}
	copyChat := *f.chat
	return &copyChat, nil
}

func (f *assistantFake) RenameSession(_ context.Context, _ string, title string) (*domain.SessionSummary, error) {
	return &domain.SessionSummary{Title: title, UpdatedAt: time.Now().UTC()}, nil
}

func (f *assistantFake) RenameChat(context.Context, string, string, string) (*domain.ChatMeta, error) {
	return nil, errors.New("not implemented")
}

func (f *assistantFake) DeleteSession(_ context.Context, sessionID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, sessionID)
	return nil
}

func (f *assistantFake) DeleteFile(context.Context, string, string) error { return nil }

func (f *assistantFake) Health(context.Context) (string, error) { return "ok", nil }

type tokenFake struct {
	id string
}

func (t *tokenFake) Put(sessionID string) { t.id = sessionID }
func (t *tokenFake) Get() (string, bool)  { return t.id, t.id != "" }
func (t *tokenFake) Clear()               { t.id = "" }

type dialogFake struct {
	confirm bool
	input   string
}

func (d *dialogFake) Confirm(string) bool { return d.confirm }
func (d *dialogFake) Input(string, string) (string, bool) {
	return d.input, d.input != ""
}

func newTestOrchestrator(api *assistantFake) (*Orchestrator, *tokenFake) {
	tokens := &tokenFake{}
	o := NewOrchestrator(api, tokens, nil, markup.NewParser(), nil, &dialogFake{confirm: true}, nil)
	return o, tokens
}

func activeDetail(canAsk bool) *domain.SessionDetail {
	return &domain.SessionDetail{
		SessionID: "s1",
		Title:     "session one",
		UpdatedAt: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		Files: []domain.SessionFile{
			{DocName: "report.pdf", SizeBytes: 1024, PageCount: 12, ChunkCount: 40},
		},
		ManifestDocs: []domain.DocumentInfo{
			{DocName: "report.pdf", PageCount: 12, ChunkCount: 40},
		},
		Chats:  []domain.ChatMeta{{ChatID: "c1", Title: "chat", MessageCount: 2}},
		CanAsk: canAsk,
	}
}

func TestEnsureSessionCreatesOnce(t *testing.T) {
	api := &assistantFake{details: map[string]*domain.SessionDetail{}}
	o, tokens := newTestOrchestrator(api)

	first, err := o.EnsureSession(context.Background())
	if err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	second, err := o.EnsureSession(context.Background())
	if err != nil {
		t.Fatalf("EnsureSession() second error = %v", err)
	}
	if first.SessionID != second.SessionID {
		t.Fatalf("session not reused: %s vs %s", first.SessionID, second.SessionID)
	}
	if tokens.id != first.SessionID {
		t.Fatalf("session id not persisted")
	}
}

func TestEnsureSessionRestoresPersistedSession(t *testing.T) {
	api := &assistantFake{details: map[string]*domain.SessionDetail{"s1": activeDetail(true)}}
	o, tokens := newTestOrchestrator(api)
	tokens.Put("s1")

	summary, err := o.EnsureSession(context.Background())
	if err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	if summary.SessionID != "s1" {
		t.Fatalf("expected restored session, got %s", summary.SessionID)
	}
	if !o.CanAsk() {
		t.Fatalf("canAsk not taken from server detail")
	}
}

func TestEnsureSessionFallsBackWhenPersistedSessionGone(t *testing.T) {
	api := &assistantFake{details: map[string]*domain.SessionDetail{}}
	o, tokens := newTestOrchestrator(api)
	tokens.Put("expired")

	summary, err := o.EnsureSession(context.Background())
	if err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	if summary.SessionID != "s-new" {
		t.Fatalf("expected fresh session, got %s", summary.SessionID)
	}
}

func TestSwitchSessionRebuildsState(t *testing.T) {
	api := &assistantFake{details: map[string]*domain.SessionDetail{"s1": activeDetail(true)}}
	o, _ := newTestOrchestrator(api)

	if err := o.SwitchSession(context.Background(), "s1"); err != nil {
		t.Fatalf("SwitchSession() error = %v", err)
	}

	files := o.Files()
	if len(files) != 1 || files[0].Status != domain.FileStatusIngested {
		t.Fatalf("file list not restored: %+v", files)
	}
	summary, ok := o.ActiveSession()
	if !ok || summary.PrimaryChatID != "c1" || summary.DocumentCount != 1 {
		t.Fatalf("summary not rebuilt: %+v", summary)
	}
	if !o.CanAsk() {
		t.Fatalf("canAsk flag not restored")
	}
}

func TestUploadAdoptsServerSessionAndReconciles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	api := &assistantFake{
		details: map[string]*domain.SessionDetail{},
		uploadRes: &domain.UploadResult{
			SessionID: "s-upload",
			Accepted:  []domain.AcceptedFile{{Name: "srv_a.pdf", OriginalName: "a.pdf", SizeBytes: 13}},
		},
	}
	o, tokens := newTestOrchestrator(api)

	if _, err := o.AddFiles(context.Background(), []string{path}); err != nil {
		t.Fatalf("AddFiles() error = %v", err)
	}
	if err := o.UploadPending(context.Background()); err != nil {
		t.Fatalf("UploadPending() error = %v", err)
	}

	files := o.Files()
	if files[0].Status != domain.FileStatusUploaded || files[0].ServerDocName != "srv_a.pdf" {
		t.Fatalf("entry not reconciled: %+v", files[0])
	}
	if tokens.id != "s-upload" {
		t.Fatalf("server session not adopted")
	}
}

func TestUploadTransportFailureFailsBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	api := &assistantFake{
		details:   map[string]*domain.SessionDetail{},
		uploadErr: domain.WrapError(domain.ErrNetwork, "upload", errors.New("dial tcp: refused")),
	}
	o, _ := newTestOrchestrator(api)

	if _, err := o.AddFiles(context.Background(), []string{path}); err != nil {
		t.Fatalf("AddFiles() error = %v", err)
	}
	err := o.UploadPending(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	entry := o.Files()[0]
	if entry.Status != domain.FileStatusError || entry.ErrorMessage != "server unreachable" {
		t.Fatalf("batch not failed: %+v", entry)
	}
}

func TestIngestAppliesResultsAndRefreshesCanAsk(t *testing.T) {
	detail := activeDetail(false)
	api := &assistantFake{
		details: map[string]*domain.SessionDetail{"s1": detail},
		ingestRes: &domain.IngestResult{
			IngestedDocs: []domain.IngestedDoc{{DocName: "report.pdf", PageCount: 12, ChunkCount: 40}},
			TotalChunks:  40,
		},
		chat: &domain.Chat{ChatID: "c1", Messages: []domain.Message{{Content: "hello"}}},
	}
	o, _ := newTestOrchestrator(api)
	if err := o.SwitchSession(context.Background(), "s1"); err != nil {
		t.Fatalf("SwitchSession() error = %v", err)
	}
	o.Files()[0].Status = domain.FileStatusUploaded
	detail.CanAsk = true

	result, err := o.Ingest(context.Background(), false)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.TotalChunks != 40 {
		t.Fatalf("unexpected result %+v", result)
	}
	entry := o.Files()[0]
	if entry.Status != domain.FileStatusIngested || entry.ChunkCount != 40 {
		t.Fatalf("entry not updated: %+v", entry)
	}
	if !o.CanAsk() {
		t.Fatalf("canAsk not refreshed from server")
	}
	if o.Busy() {
		t.Fatalf("busy flag not cleared")
	}
}

func TestAskOptimisticAppendThenForcedReload(t *testing.T) {
	api := &assistantFake{
		details: map[string]*domain.SessionDetail{"s1": activeDetail(true)},
		askRes: &domain.AskResult{
			Chat:       domain.ChatMeta{ChatID: "c1", MessageCount: 4, UpdatedAt: time.Now().UTC()},
			Answer:     "See [report.pdf: 3-5]",
			Confidence: 0.82,
			LatencyMS:  120,
		},
		chat: &domain.Chat{ChatID: "c1", Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "q"},
			{Role: domain.RoleAssistant, Content: "See [report.pdf: 3-5]"},
		}},
	}
	o, _ := newTestOrchestrator(api)
	if err := o.SwitchSession(context.Background(), "s1"); err != nil {
		t.Fatalf("SwitchSession() error = %v", err)
	}

	var pendingAtCall int
	api.onAsk = func() {
		for _, msg := range o.Chats().GetOrCreate("c1").Messages {
			if msg.Pending || msg.Content == "q" {
				pendingAtCall++
			}
		}
	}

	outcome, err := o.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if pendingAtCall != 2 {
		t.Fatalf("optimistic append did not precede the call: %d", pendingAtCall)
	}
	if api.getCalls == 0 {
		t.Fatalf("no forced history reload after ask")
	}
	chat := o.Chats().GetOrCreate("c1")
	for _, msg := range chat.Messages {
		if msg.Pending {
			t.Fatalf("placeholder survived the reload: %+v", chat.Messages)
		}
	}
	if len(outcome.Refs) != 2 || outcome.Refs[0].Page != "3" || outcome.Refs[1].Page != "5" {
		t.Fatalf("citation refs not parsed: %v", outcome.Refs)
	}
	if outcome.Confidence != 0.82 || outcome.LatencyMS != 120 {
		t.Fatalf("answer metadata lost: %+v", outcome)
	}
}

func TestAskFailureStillReloadsAndClearsBusy(t *testing.T) {
	api := &assistantFake{
		details: map[string]*domain.SessionDetail{"s1": activeDetail(true)},
		askErr:  errors.New("generation failed"),
		chat:    &domain.Chat{ChatID: "c1", Messages: []domain.Message{{Content: "server truth"}}},
	}
	o, _ := newTestOrchestrator(api)
	if err := o.SwitchSession(context.Background(), "s1"); err != nil {
		t.Fatalf("SwitchSession() error = %v", err)
	}

	if _, err := o.Ask(context.Background(), "q"); err == nil {
		t.Fatalf("expected error")
	}
	if api.getCalls == 0 {
		t.Fatalf("no forced reload after failed ask")
	}
	chat := o.Chats().GetOrCreate("c1")
	if len(chat.Messages) != 1 || chat.Messages[0].Content != "server truth" {
		t.Fatalf("optimistic state survived failure: %+v", chat.Messages)
	}
	if o.Busy() {
		t.Fatalf("busy flag not cleared on failure")
	}
}

func TestAskRejectsReentrantInvocation(t *testing.T) {
	api := &assistantFake{
		details: map[string]*domain.SessionDetail{"s1": activeDetail(true)},
		askRes:  &domain.AskResult{Chat: domain.ChatMeta{ChatID: "c1"}},
		chat:    &domain.Chat{ChatID: "c1"},
	}
	o, _ := newTestOrchestrator(api)
	if err := o.SwitchSession(context.Background(), "s1"); err != nil {
		t.Fatalf("SwitchSession() error = %v", err)
	}

	var reentrantErr error
	api.onAsk = func() {
		_, reentrantErr = o.Ask(context.Background(), "again")
	}

	if _, err := o.Ask(context.Background(), "q"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !domain.IsKind(reentrantErr, domain.ErrBusy) {
		t.Fatalf("re-entrant ask not rejected: %v", reentrantErr)
	}
	if api.askCalls != 1 {
		t.Fatalf("re-entrant ask reached the server")
	}
}

func TestAskRequiresServerCanAskFlag(t *testing.T) {
	api := &assistantFake{details: map[string]*domain.SessionDetail{"s1": activeDetail(false)}}
	o, _ := newTestOrchestrator(api)
	if err := o.SwitchSession(context.Background(), "s1"); err != nil {
		t.Fatalf("SwitchSession() error = %v", err)
	}
	// Local status says ingested, but the server flag is authoritative.
	o.Files()[0].Status = domain.FileStatusIngested

	_, err := o.Ask(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDeleteActiveSessionActivatesMostRecent(t *testing.T) {
	older := activeDetail(true)
	older.SessionID = "s-old"
	older.UpdatedAt = time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	current := activeDetail(true)
	current.UpdatedAt = time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	api := &assistantFake{details: map[string]*domain.SessionDetail{"s1": current, "s-old": older}}
	o, tokens := newTestOrchestrator(api)
	if err := o.SwitchSession(context.Background(), "s-old"); err != nil {
		t.Fatalf("SwitchSession(s-old) error = %v", err)
	}
	if err := o.SwitchSession(context.Background(), "s1"); err != nil {
		t.Fatalf("SwitchSession(s1) error = %v", err)
	}

	if err := o.DeleteActiveSession(context.Background()); err != nil {
		t.Fatalf("DeleteActiveSession() error = %v", err)
	}

	if len(api.deletedIDs) != 1 || api.deletedIDs[0] != "s1" {
		t.Fatalf("unexpected delete calls %v", api.deletedIDs)
	}
	active, ok := o.ActiveSession()
	if !ok || active.SessionID != "s-old" {
		t.Fatalf("next session not activated: %+v", active)
	}
	if tokens.id != "s-old" {
		t.Fatalf("token not pointing at new active session")
	}
}

func TestDeleteDeclinedConfirmationIsNoOp(t *testing.T) {
	api := &assistantFake{details: map[string]*domain.SessionDetail{"s1": activeDetail(true)}}
	tokens := &tokenFake{}
	o := NewOrchestrator(api, tokens, nil, markup.NewParser(), nil, &dialogFake{confirm: false}, nil)
	if err := o.SwitchSession(context.Background(), "s1"); err != nil {
		t.Fatalf("SwitchSession() error = %v", err)
	}

	if err := o.DeleteActiveSession(context.Background()); err != nil {
		t.Fatalf("DeleteActiveSession() error = %v", err)
	}
	if len(api.deletedIDs) != 0 {
		t.Fatalf("delete reached the server despite declined confirmation")
	}
	if _, ok := o.ActiveSession(); !ok {
		t.Fatalf("active session dropped")
	}
}
