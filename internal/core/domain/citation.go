package domain

// CitationRef is one (document, page) pair parsed from a bracketed
// [name.pdf: pages] token in generated answer text. Page keeps its string
// form; an empty page means the token named the document without a page.
type CitationRef struct {
	Filename string `json:"filename"`
	Page     string `json:"page"`
}

func (c CitationRef) Key() RefKey {
	return RefKey{Filename: c.Filename, Page: c.Page}
}
