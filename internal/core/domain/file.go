package domain

type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusUploading FileStatus = "uploading"
	FileStatusUploaded  FileStatus = "uploaded"
	FileStatusIngested  FileStatus = "ingested"
	FileStatusError     FileStatus = "error"
)

// FileEntry tracks one locally selected document through upload and ingestion.
// ServerDocName is assigned when the server accepts the upload and is the
// stable join key for all later ingest and delete calls.
type FileEntry struct {
	ID            string     `json:"id"`
	DisplayName   string     `json:"display_name"`
	LocalPath     string     `json:"local_path,omitempty"`
	SizeBytes     int64      `json:"size_bytes"`
	Status        FileStatus `json:"status"`
	ServerDocName string     `json:"server_doc_name,omitempty"`
	PageCount     int        `json:"page_count,omitempty"`
	ChunkCount    int        `json:"chunk_count,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}

// Terminal reports whether the entry has left the upload pipeline.
func (f *FileEntry) Terminal() bool {
	switch f.Status {
	case FileStatusUploaded, FileStatusIngested, FileStatusError:
		return true
	default:
		return false
	}
}
