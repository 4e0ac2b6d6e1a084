package pdfprobe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPageCountRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := New().PageCount(path); err == nil {
		t.Fatalf("expected error for non-pdf file")
	}
}

func TestPageCountRejectsMalformedPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 truncated"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := New().PageCount(path); err == nil {
		t.Fatalf("expected error for malformed pdf")
	}
}

func TestPageCountMissingFile(t *testing.T) {
	if _, err := New().PageCount(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
