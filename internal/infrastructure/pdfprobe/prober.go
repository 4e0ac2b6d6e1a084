package pdfprobe

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Prober reads the page count of a local PDF ahead of upload so the file
// list can show it before the server reports its own numbers. Non-PDF files
// and malformed PDFs are not probe errors worth failing intake over; callers
// treat any error here as "count unknown".
type Prober struct{}

func New() *Prober {
	return &Prober{}
}

func (p *Prober) PageCount(path string) (int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return 0, fmt.Errorf("not a pdf: %s", filepath.Base(path))
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return reader.NumPage(), nil
}
