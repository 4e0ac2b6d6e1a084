package view

import (
	"testing"
	"time"

	"github.com/vqhuy/docchat/internal/core/domain"
)

func testHighlighter(now *time.Time) *Highlighter {
	h := NewHighlighter()
	h.now = func() time.Time { return *now }
	return h
}

func key(doc, page string) domain.RefKey {
	return domain.RefKey{Filename: doc, Page: page}
}

func TestHighlightPulsesMatchingCardsAndBubbleOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	h := testHighlighter(&now)
	view := Rect{Top: 0, Bottom: 1000}
	h.SetViewports(view, view)
	h.SetCards([]CitationCard{
		{ID: "card-3", Filename: "report.pdf", Page: "3", Bounds: Rect{Top: 10, Bottom: 60}},
		{ID: "card-5", Filename: "report.pdf", Page: "5", Bounds: Rect{Top: 70, Bottom: 120}},
		{ID: "card-other", Filename: "other.pdf", Page: "3", Bounds: Rect{Top: 130, Bottom: 160}},
	})
	h.SetBubbles([]ChatBubble{
		{ID: "bubble-1", Refs: []domain.RefKey{key("report.pdf", "3"), key("report.pdf", "5")}, Bounds: Rect{Top: 0, Bottom: 80}},
	})

	// Pages from an expanded range token: endpoints only.
	h.Highlight("report.pdf", "3", "5")

	pulses := h.ActivePulses()
	want := []string{"bubble-1", "card-3", "card-5"}
	if len(pulses) != len(want) {
		t.Fatalf("pulses = %v, want %v", pulses, want)
	}
	for i, id := range want {
		if pulses[i] != id {
			t.Fatalf("pulses = %v, want %v", pulses, want)
		}
	}
	if scrolls := h.DrainScrolls(); len(scrolls) != 0 {
		t.Fatalf("visible targets should not scroll: %v", scrolls)
	}
}

func TestHighlightZeroMatchesIsSilentNoOp(t *testing.T) {
	now := time.Now()
	h := testHighlighter(&now)
	h.SetCards([]CitationCard{{ID: "c", Filename: "a.pdf", Page: "1"}})

	h.Highlight("superseded.pdf", "9")

	if pulses := h.ActivePulses(); len(pulses) != 0 {
		t.Fatalf("expected no pulses, got %v", pulses)
	}
	if scrolls := h.DrainScrolls(); len(scrolls) != 0 {
		t.Fatalf("expected no scrolls, got %v", scrolls)
	}
}

func TestHighlightNoPageMatchesAnyCardForDocument(t *testing.T) {
	now := time.Now()
	h := testHighlighter(&now)
	view := Rect{Top: 0, Bottom: 1000}
	h.SetViewports(view, view)
	h.SetCards([]CitationCard{
		{ID: "c1", Filename: "a.pdf", Page: "1"},
		{ID: "c2", Filename: "a.pdf", Page: "2"},
	})

	h.Highlight("a.pdf")

	if pulses := h.ActivePulses(); len(pulses) != 2 {
		t.Fatalf("expected both cards pulsed, got %v", pulses)
	}
}

func TestHighlightScrollsFirstOffscreenMatch(t *testing.T) {
	now := time.Now()
	h := testHighlighter(&now)
	h.SetViewports(Rect{Top: 0, Bottom: 200}, Rect{Top: 0, Bottom: 200})
	h.SetCards([]CitationCard{
		{ID: "visible", Filename: "a.pdf", Page: "1", Bounds: Rect{Top: 20, Bottom: 60}},
		{ID: "below", Filename: "a.pdf", Page: "2", Bounds: Rect{Top: 500, Bottom: 540}},
		{ID: "further", Filename: "a.pdf", Page: "3", Bounds: Rect{Top: 700, Bottom: 740}},
	})

	h.Highlight("a.pdf", "1", "2", "3")

	scrolls := h.DrainScrolls()
	if len(scrolls) != 1 {
		t.Fatalf("expected a single scroll request, got %v", scrolls)
	}
	if scrolls[0].TargetID != "below" {
		t.Fatalf("expected first offscreen target, got %s", scrolls[0].TargetID)
	}
	if scrolls[0].Top >= 500 {
		t.Fatalf("scroll top should include margin, got %f", scrolls[0].Top)
	}
}

func TestPulsesExpireAfterFixedDuration(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	h := testHighlighter(&now)
	view := Rect{Top: 0, Bottom: 100}
	h.SetViewports(view, view)
	h.SetCards([]CitationCard{{ID: "c", Filename: "a.pdf", Page: "1", Bounds: Rect{Top: 0, Bottom: 10}}})

	h.Highlight("a.pdf", "1")
	if len(h.ActivePulses()) != 1 {
		t.Fatalf("expected active pulse")
	}

	now = now.Add(PulseDuration + time.Millisecond)
	if pulses := h.ActivePulses(); len(pulses) != 0 {
		t.Fatalf("pulse did not expire: %v", pulses)
	}
}

func TestRepeatedHighlightRefreshesWithoutStacking(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	h := testHighlighter(&now)
	view := Rect{Top: 0, Bottom: 100}
	h.SetViewports(view, view)
	h.SetBubbles([]ChatBubble{{ID: "b", Refs: []domain.RefKey{key("a.pdf", "1")}, Bounds: Rect{Top: 0, Bottom: 10}}})

	h.Highlight("a.pdf", "1")
	h.Highlight("a.pdf", "1")

	if pulses := h.ActivePulses(); len(pulses) != 1 {
		t.Fatalf("expected one pulse entry, got %v", pulses)
	}
}
