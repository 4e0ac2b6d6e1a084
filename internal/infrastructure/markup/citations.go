// Package markup resolves bracketed citation tokens embedded in generated
// answer text into structured references.
//
// Recognized token grammar:
//
//	'[' filename ':' ws* page-spec ']'
//
// where filename is one or more non-bracket characters ending in ".pdf"
// (case-insensitive) and page-spec is a comma-separated list of bare
// integers or ranges. A range "a-b" (hyphen or en-dash) expands to its two
// endpoints only, never the pages in between; that mirrors the citation
// convention of the upstream answer generator and is preserved exactly.
// Malformed tokens are left untouched and produce no reference.
package markup

import (
	"html"
	"strings"

	"github.com/vqhuy/docchat/internal/core/domain"
	"github.com/vqhuy/docchat/internal/observability/metrics"
)

const (
	markerOpen  = `<span class="cite-ref"`
	markerClose = `</span>`
	enDash      = '–'
)

type Parser struct {
	metrics *metrics.ClientMetrics
}

func NewParser() *Parser {
	return &Parser{}
}

// WithMetrics makes the parser count parsed and malformed citation tokens.
func (p *Parser) WithMetrics(m *metrics.ClientMetrics) *Parser {
	p.metrics = m
	return p
}

// Annotate scans text for citation tokens and returns the references found,
// deduplicated by (filename, page) in first-encountered order, together with
// a copy of the text in which each recognized token is wrapped in an inert
// addressable marker. Text outside recognized tokens is never mutated, and
// tokens already inside a marker are skipped, so re-annotating marked output
// yields no additional markers and no duplicate references.
func (p *Parser) Annotate(text string) ([]domain.CitationRef, string) {
	var (
		refs []domain.CitationRef
		seen = make(map[domain.RefKey]struct{})
		out  strings.Builder

		parsed, malformed int
	)
	out.Grow(len(text))

	i := 0
	for i < len(text) {
		// Pass through existing markers untouched.
		if strings.HasPrefix(text[i:], markerOpen) {
			end := strings.Index(text[i:], markerClose)
			if end < 0 {
				out.WriteString(text[i:])
				break
			}
			end += i + len(markerClose)
			out.WriteString(text[i:end])
			i = end
			continue
		}

		if text[i] != '[' {
			out.WriteByte(text[i])
			i++
			continue
		}

		close := strings.IndexByte(text[i:], ']')
		if close < 0 {
			out.WriteString(text[i:])
			break
		}
		close += i

		filename, pages, ok := parseToken(text[i+1 : close])
		if !ok {
			// Only count candidates that were plausibly meant as
			// citations; plain bracketed text is not an error.
			if strings.Contains(strings.ToLower(text[i+1:close]), ".pdf") {
				malformed++
			}
			// Malformed token: copy the opening bracket literally and
			// keep scanning, so a later well-formed token still parses.
			out.WriteByte('[')
			i++
			continue
		}
		parsed++

		for _, page := range pages {
			ref := domain.CitationRef{Filename: filename, Page: page}
			if _, dup := seen[ref.Key()]; dup {
				continue
			}
			seen[ref.Key()] = struct{}{}
			refs = append(refs, ref)
		}

		token := text[i : close+1]
		out.WriteString(markerOpen)
		out.WriteString(` data-doc="`)
		out.WriteString(html.EscapeString(filename))
		out.WriteString(`" data-pages="`)
		out.WriteString(html.EscapeString(strings.Join(pages, ",")))
		out.WriteString(`">`)
		out.WriteString(token)
		out.WriteString(markerClose)
		i = close + 1
	}

	p.metrics.RecordCitationTokens("docchat", parsed, malformed)
	return refs, out.String()
}

// parseToken validates the token body (the text between the brackets) and
// returns the filename and expanded page list.
func parseToken(body string) (string, []string, bool) {
	colon := strings.IndexByte(body, ':')
	if colon < 0 {
		return "", nil, false
	}

	filename := body[:colon]
	if strings.ContainsRune(filename, '[') {
		return "", nil, false
	}
	lower := strings.ToLower(filename)
	if !strings.HasSuffix(lower, ".pdf") || len(filename) == len(".pdf") {
		return "", nil, false
	}

	pages, ok := expandPageSpec(body[colon+1:])
	if !ok {
		return "", nil, false
	}
	return filename, pages, true
}

// expandPageSpec parses a comma-separated list of integers and ranges,
// expanding each range to its two endpoints, deduplicated in
// first-encountered order. Any invalid segment rejects the whole spec.
func expandPageSpec(spec string) ([]string, bool) {
	segments := strings.Split(spec, ",")
	pages := make([]string, 0, len(segments))
	seen := make(map[string]struct{}, len(segments))

	add := func(page string) {
		if _, dup := seen[page]; dup {
			return
		}
		seen[page] = struct{}{}
		pages = append(pages, page)
	}

	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if isInteger(seg) {
			add(seg)
			continue
		}
		lo, hi, ok := splitRange(seg)
		if !ok {
			return nil, false
		}
		add(lo)
		add(hi)
	}

	if len(pages) == 0 {
		return nil, false
	}
	return pages, true
}

func splitRange(seg string) (string, string, bool) {
	sep := strings.IndexAny(seg, "-"+string(enDash))
	if sep < 0 {
		return "", "", false
	}
	lo := strings.TrimSpace(seg[:sep])
	rest := seg[sep:]
	if strings.HasPrefix(rest, "-") {
		rest = rest[1:]
	} else {
		rest = strings.TrimPrefix(rest, string(enDash))
	}
	hi := strings.TrimSpace(rest)
	if !isInteger(lo) || !isInteger(hi) {
		return "", "", false
	}
	return lo, hi, true
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
