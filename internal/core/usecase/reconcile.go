package usecase

import (
	"strings"

	"github.com/vqhuy/docchat/internal/core/domain"
)

// ReconcileUpload assigns every entry currently in uploading status exactly
// one terminal status from the server's per-batch breakdown. Accepted files
// match an uploading entry without a server name by exact original filename
// first, then by a unique byte-size match. Per-file errors match by exact
// filename (case-sensitive, then case-insensitive), then by sanitized name,
// and finally fall back to any remaining unmatched uploading entry so every
// server status is accounted for. Entries the server reported nothing about
// are errored rather than left in uploading.
func ReconcileUpload(entries []*domain.FileEntry, result *domain.UploadResult) {
	if result == nil {
		FailBatch(entries, "upload failed")
		return
	}

	uploading := func() []*domain.FileEntry {
		out := make([]*domain.FileEntry, 0, len(entries))
		for _, e := range entries {
			if e.Status == domain.FileStatusUploading {
				out = append(out, e)
			}
		}
		return out
	}

	for _, accepted := range result.Accepted {
		entry := matchAccepted(uploading(), accepted)
		if entry == nil {
			continue
		}
		entry.Status = domain.FileStatusUploaded
		entry.ServerDocName = accepted.Name
		entry.ErrorMessage = ""
	}

	for _, fileErr := range result.Errors {
		entry := matchError(uploading(), fileErr)
		if entry == nil {
			continue
		}
		entry.Status = domain.FileStatusError
		entry.ErrorMessage = fileErr.Reason
	}

	// The response did not mention these entries at all.
	for _, entry := range uploading() {
		entry.Status = domain.FileStatusError
		entry.ErrorMessage = "server reported no result for this file"
	}
}

// FailBatch marks every in-flight entry errored with the batch-level message,
// used when the response carries no per-file breakdown.
func FailBatch(entries []*domain.FileEntry, message string) {
	if message == "" {
		message = "upload failed"
	}
	for _, entry := range entries {
		if entry.Status != domain.FileStatusUploading && entry.Status != domain.FileStatusPending {
			continue
		}
		entry.Status = domain.FileStatusError
		entry.ErrorMessage = message
	}
}

func matchAccepted(uploading []*domain.FileEntry, accepted domain.AcceptedFile) *domain.FileEntry {
	for _, entry := range uploading {
		if entry.ServerDocName == "" && entry.DisplayName == accepted.OriginalName {
			return entry
		}
	}

	var bySize *domain.FileEntry
	for _, entry := range uploading {
		if entry.ServerDocName != "" || entry.SizeBytes != accepted.SizeBytes {
			continue
		}
		if bySize != nil {
			return nil // ambiguous size match
		}
		bySize = entry
	}
	return bySize
}

func matchError(uploading []*domain.FileEntry, fileErr domain.FileError) *domain.FileEntry {
	for _, entry := range uploading {
		if entry.DisplayName == fileErr.OriginalName {
			return entry
		}
	}
	for _, entry := range uploading {
		if strings.EqualFold(entry.DisplayName, fileErr.OriginalName) {
			return entry
		}
	}
	want := sanitizeName(fileErr.OriginalName)
	for _, entry := range uploading {
		if sanitizeName(entry.DisplayName) == want {
			return entry
		}
	}
	if len(uploading) > 0 {
		return uploading[0]
	}
	return nil
}

// sanitizeName normalizes every non-alphanumeric character to an underscore,
// mirroring the server's stored-filename normalization.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
