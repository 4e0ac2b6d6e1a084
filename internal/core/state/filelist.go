package state

import "github.com/vqhuy/docchat/internal/core/domain"

// FileList owns the active session's file entries. Entries are invalidated
// wholesale on session switch.
type FileList struct {
	entries []*domain.FileEntry
}

func NewFileList() *FileList {
	return &FileList{}
}

func (l *FileList) Add(entry *domain.FileEntry) {
	l.entries = append(l.entries, entry)
}

func (l *FileList) Entries() []*domain.FileEntry {
	return l.entries
}

// WithStatus returns the entries currently in the given status.
func (l *FileList) WithStatus(status domain.FileStatus) []*domain.FileEntry {
	out := make([]*domain.FileEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// ByServerName resolves an entry by its server-assigned document name.
func (l *FileList) ByServerName(docName string) (*domain.FileEntry, bool) {
	for _, e := range l.entries {
		if e.ServerDocName != "" && e.ServerDocName == docName {
			return e, true
		}
	}
	return nil, false
}

// RemoveByServerName drops the entry joined to the given document name.
func (l *FileList) RemoveByServerName(docName string) bool {
	for i, e := range l.entries {
		if e.ServerDocName != "" && e.ServerDocName == docName {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// AnyIngested reports whether at least one document finished ingestion.
func (l *FileList) AnyIngested() bool {
	for _, e := range l.entries {
		if e.Status == domain.FileStatusIngested {
			return true
		}
	}
	return false
}

// Reset invalidates every entry, used on session switch and session reset.
func (l *FileList) Reset() {
	l.entries = nil
}

// Replace swaps the list wholesale for entries rebuilt from server state.
func (l *FileList) Replace(entries []*domain.FileEntry) {
	l.entries = entries
}
