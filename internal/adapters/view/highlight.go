// Package view models the rendered surface the highlighter operates on:
// citation cards and chat bubbles positioned inside scroll containers. The
// actual rendering layer consumes pulse and scroll outputs; this package only
// decides what to pulse and where to scroll.
package view

import (
	"sort"
	"time"

	"github.com/vqhuy/docchat/internal/core/domain"
)

const (
	// PulseDuration is how long a triggered pulse stays active.
	PulseDuration = 1200 * time.Millisecond
	// scrollMargin keeps a little breathing room above a scrolled-to target.
	scrollMargin = 16.0
)

// Rect is axis-aligned bounding geometry in container coordinates.
type Rect struct {
	Top    float64
	Left   float64
	Bottom float64
	Right  float64
}

// insideVertically reports whether the rect lies fully within the container's
// visible vertical span.
func (r Rect) insideVertically(view Rect) bool {
	return r.Top >= view.Top && r.Bottom <= view.Bottom
}

// CitationCard is one rendered source-reference card.
type CitationCard struct {
	ID       string
	Filename string
	Page     string
	Bounds   Rect
}

// ChatBubble is one rendered message bubble and the citation targets its
// source references cover.
type ChatBubble struct {
	ID     string
	Refs   []domain.RefKey
	Bounds Rect
}

// ScrollRequest asks the rendering layer to bring a target into view.
type ScrollRequest struct {
	TargetID string
	Top      float64
}

// Highlighter locates citation cards and chat bubbles matching a (document,
// page) reference and tracks transient pulses on them. Absence of a match is
// a silent no-op: generated citations may reference content that is not
// currently rendered.
type Highlighter struct {
	now func() time.Time

	cards   []CitationCard
	bubbles []ChatBubble
	// visible regions of the citation panel and the chat transcript
	cardView Rect
	chatView Rect

	pulses  map[string]time.Time
	scrolls []ScrollRequest
}

func NewHighlighter() *Highlighter {
	return &Highlighter{
		now:    time.Now,
		pulses: make(map[string]time.Time),
	}
}

func (h *Highlighter) SetCards(cards []CitationCard) { h.cards = cards }

func (h *Highlighter) SetBubbles(bubbles []ChatBubble) { h.bubbles = bubbles }

func (h *Highlighter) SetViewports(cardView, chatView Rect) {
	h.cardView = cardView
	h.chatView = chatView
}

// Highlight pulses every citation card matching (filename, pages) and every
// chat bubble whose reference set contains a matching key. With no pages the
// filename alone matches any card for that document. A bubble is pulsed at
// most once per invocation even when several supplied pages hit it. The first
// match outside its container's visible region gets a scroll request;
// already-visible targets are pulsed in place.
func (h *Highlighter) Highlight(filename string, pages ...string) {
	var matchedCards []CitationCard
	for _, card := range h.cards {
		if card.Filename != filename {
			continue
		}
		if len(pages) == 0 || containsPage(pages, card.Page) {
			matchedCards = append(matchedCards, card)
		}
	}

	var matchedBubbles []ChatBubble
	for _, bubble := range h.bubbles {
		if bubbleMatches(bubble, filename, pages) {
			matchedBubbles = append(matchedBubbles, bubble)
		}
	}

	expiry := h.now().Add(PulseDuration)
	for _, card := range matchedCards {
		h.pulses[card.ID] = expiry
	}
	for _, bubble := range matchedBubbles {
		h.pulses[bubble.ID] = expiry
	}

	for _, card := range matchedCards {
		if !card.Bounds.insideVertically(h.cardView) {
			h.scrolls = append(h.scrolls, ScrollRequest{
				TargetID: card.ID,
				Top:      card.Bounds.Top - scrollMargin,
			})
			return
		}
	}
	for _, bubble := range matchedBubbles {
		if !bubble.Bounds.insideVertically(h.chatView) {
			h.scrolls = append(h.scrolls, ScrollRequest{
				TargetID: bubble.ID,
				Top:      bubble.Bounds.Top - scrollMargin,
			})
			return
		}
	}
}

// ActivePulses prunes expired pulses and returns the element ids still
// pulsing, in stable order.
func (h *Highlighter) ActivePulses() []string {
	now := h.now()
	out := make([]string, 0, len(h.pulses))
	for id, expiry := range h.pulses {
		if expiry.Before(now) {
			delete(h.pulses, id)
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DrainScrolls hands the pending scroll requests to the rendering layer.
func (h *Highlighter) DrainScrolls() []ScrollRequest {
	out := h.scrolls
	h.scrolls = nil
	return out
}

func containsPage(pages []string, page string) bool {
	for _, p := range pages {
		if p == page {
			return true
		}
	}
	return false
}

func bubbleMatches(bubble ChatBubble, filename string, pages []string) bool {
	for _, ref := range bubble.Refs {
		if ref.Filename != filename {
			continue
		}
		if len(pages) == 0 || containsPage(pages, ref.Page) {
			return true
		}
	}
	return false
}
