package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vqhuy/docchat/internal/core/domain"
	"github.com/vqhuy/docchat/internal/core/ports"
)

// AddFiles registers local files as pending entries of the active session's
// file list. Page counts are probed locally where possible; a failed probe is
// not an intake error, the server-reported count takes over after ingestion.
func (o *Orchestrator) AddFiles(ctx context.Context, paths []string) ([]*domain.FileEntry, error) {
	if len(paths) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "add files", errors.New("no files selected"))
	}

	added := make([]*domain.FileEntry, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "add files", err)
		}

		entry := &domain.FileEntry{
			ID:          uuid.NewString(),
			DisplayName: filepath.Base(path),
			LocalPath:   path,
			SizeBytes:   info.Size(),
			Status:      domain.FileStatusPending,
		}
		if o.prober != nil {
			if pages, err := o.prober.PageCount(path); err == nil {
				entry.PageCount = pages
			} else {
				o.log.Debug("page_probe_failed", "path", path, "error", err)
			}
		}
		o.files.Add(entry)
		added = append(added, entry)
	}
	return added, nil
}

// UploadPending sends every pending entry to the server in one batch and
// reconciles the response. After it returns no entry of the batch remains in
// uploading status: each one is either uploaded with its server-assigned
// document name or errored.
func (o *Orchestrator) UploadPending(ctx context.Context) error {
	if err := o.acquire(&o.isUploading, "upload"); err != nil {
		return err
	}
	defer func() { o.isUploading = false }()

	pending := o.files.WithStatus(domain.FileStatusPending)
	if len(pending) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("no files to upload"))
	}

	batch := make([]*domain.FileEntry, 0, len(pending))
	uploads := make([]ports.FileUpload, 0, len(pending))
	var readers []*os.File
	defer func() {
		for _, r := range readers {
			_ = r.Close()
		}
	}()

	for _, entry := range pending {
		f, err := os.Open(entry.LocalPath)
		if err != nil {
			entry.Status = domain.FileStatusError
			entry.ErrorMessage = fmt.Sprintf("open file: %v", err)
			continue
		}
		readers = append(readers, f)
		entry.Status = domain.FileStatusUploading
		batch = append(batch, entry)
		uploads = append(uploads, ports.FileUpload{
			Name:      entry.DisplayName,
			SizeBytes: entry.SizeBytes,
			Data:      f,
		})
	}
	if len(batch) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("no readable files to upload"))
	}

	result, err := o.api.UploadFiles(ctx, o.activeSession, uploads)
	if err != nil {
		FailBatch(batch, uploadFailureMessage(err))
		o.notify.Notify("error", "Upload failed. Check the file list for details.")
		return fmt.Errorf("upload files: %w", err)
	}

	// First upload without a session adopts the server-issued one.
	if o.activeSession == "" && result.SessionID != "" {
		o.activeSession = result.SessionID
		o.tokens.Put(result.SessionID)
		o.registry.Upsert(domain.SessionPatch{SessionID: result.SessionID})
	}

	ReconcileUpload(batch, result)

	uploaded, failed := 0, 0
	for _, entry := range batch {
		switch entry.Status {
		case domain.FileStatusUploaded:
			uploaded++
		case domain.FileStatusError:
			failed++
		}
	}
	o.log.Info("upload_reconciled", "session_id", o.activeSession, "uploaded", uploaded, "failed", failed)
	if failed > 0 {
		o.notify.Notify("warn", fmt.Sprintf("%d file(s) failed to upload.", failed))
	}
	return nil
}

// Ingest asks the server to ingest the session's uploaded documents and
// applies the per-document results. The busy flag is cleared on every path so
// the client is never left permanently "processing".
func (o *Orchestrator) Ingest(ctx context.Context, ocr bool) (*domain.IngestResult, error) {
	if err := o.acquire(&o.isIngesting, "ingest"); err != nil {
		return nil, err
	}
	defer func() { o.isIngesting = false }()

	if _, err := o.requireActive("ingest"); err != nil {
		return nil, err
	}

	result, err := o.api.Ingest(ctx, o.activeSession, ocr)
	if err != nil {
		o.notify.Notify("error", "Ingestion failed.")
		return nil, fmt.Errorf("ingest: %w", err)
	}

	for _, doc := range result.IngestedDocs {
		entry, ok := o.files.ByServerName(doc.DocName)
		if !ok {
			continue
		}
		entry.Status = domain.FileStatusIngested
		entry.PageCount = doc.PageCount
		entry.ChunkCount = doc.ChunkCount
		entry.ErrorMessage = ""
	}

	o.refreshDetail(ctx)
	o.reloadPrimaryChat(ctx)

	if result.Message != "" {
		o.notify.Notify("info", result.Message)
	}
	o.log.Info("ingest_done", "session_id", o.activeSession, "docs", len(result.IngestedDocs), "total_chunks", result.TotalChunks)
	return result, nil
}

// DeleteFile removes one ingested document from the session after
// confirmation, keyed by its server-assigned name.
func (o *Orchestrator) DeleteFile(ctx context.Context, docName string) error {
	if _, err := o.requireActive("delete file"); err != nil {
		return err
	}
	if _, ok := o.files.ByServerName(docName); !ok {
		return domain.WrapError(domain.ErrInvalidInput, "delete file", fmt.Errorf("unknown document %q", docName))
	}
	if !o.dialog.Confirm(fmt.Sprintf("Remove document %q from this session?", docName)) {
		return nil
	}

	if err := o.api.DeleteFile(ctx, o.activeSession, docName); err != nil {
		o.notify.Notify("error", "Could not remove the document.")
		return fmt.Errorf("delete file: %w", err)
	}

	o.files.RemoveByServerName(docName)
	o.refreshDetail(ctx)
	o.notify.Notify("info", "Document removed.")
	return nil
}

// refreshDetail re-reads the authoritative session detail, mainly to pick up
// the server-computed canAsk flag. Failures are logged, not surfaced: the
// next explicit operation will observe server truth anyway.
func (o *Orchestrator) refreshDetail(ctx context.Context) {
	detail, err := o.api.SessionDetail(ctx, o.activeSession)
	if err != nil {
		o.log.Warn("refresh_detail_failed", "session_id", o.activeSession, "error", err)
		return
	}
	o.canAsk = detail.CanAsk
	patch := domain.SessionPatch{
		SessionID: o.activeSession,
		Docs:      append([]domain.DocumentInfo{}, detail.ManifestDocs...),
	}
	if !detail.UpdatedAt.IsZero() {
		patch.UpdatedAt = domain.TimePtr(detail.UpdatedAt)
	}
	o.registry.Upsert(patch)
}

// reloadPrimaryChat forces a full history reload of the session's chat.
func (o *Orchestrator) reloadPrimaryChat(ctx context.Context) {
	summary, ok := o.registry.Get(o.activeSession)
	if !ok || summary.PrimaryChatID == "" {
		return
	}
	if _, err := o.chats.FetchIfStale(ctx, o.activeSession, summary.PrimaryChatID, true); err != nil {
		o.log.Warn("chat_reload_failed", "chat_id", summary.PrimaryChatID, "error", err)
	}
}

func uploadFailureMessage(err error) string {
	if domain.IsKind(err, domain.ErrNetwork) {
		return "server unreachable"
	}
	return "upload rejected by server"
}
