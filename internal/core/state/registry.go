package state

import (
	"sort"

	"github.com/vqhuy/docchat/internal/core/domain"
)

// Registry keeps a deduplicated collection of session summaries, re-sorted
// after every mutation descending by update time. It holds no notion of an
// "active" session; that belongs to the orchestrator.
type Registry struct {
	sessions []*domain.SessionSummary
	byID     map[string]*domain.SessionSummary
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*domain.SessionSummary)}
}

// Upsert merges the patch into the existing summary for the same session id,
// or inserts a new one. Explicitly provided fields overwrite, including an
// explicit empty document list; absent (nil) fields inherit the previous
// value. DocumentCount derives from the document list length only when no
// explicit count is supplied.
func (r *Registry) Upsert(patch domain.SessionPatch) *domain.SessionSummary {
	if patch.SessionID == "" {
		return nil
	}

	summary, ok := r.byID[patch.SessionID]
	if !ok {
		summary = &domain.SessionSummary{SessionID: patch.SessionID}
		r.byID[patch.SessionID] = summary
		r.sessions = append(r.sessions, summary)
	}

	if patch.Title != nil {
		summary.Title = *patch.Title
	}
	if patch.CreatedAt != nil {
		summary.CreatedAt = *patch.CreatedAt
	}
	if patch.UpdatedAt != nil {
		summary.UpdatedAt = *patch.UpdatedAt
	}
	if patch.MessageCount != nil {
		summary.MessageCount = *patch.MessageCount
	}
	if patch.PrimaryChatID != nil {
		summary.PrimaryChatID = *patch.PrimaryChatID
	}
	if patch.Docs != nil {
		summary.Docs = patch.Docs
		if patch.DocumentCount == nil {
			summary.DocumentCount = len(patch.Docs)
		}
	}
	if patch.DocumentCount != nil {
		summary.DocumentCount = *patch.DocumentCount
	}

	r.resort()
	return summary
}

// Remove deletes the summary; the caller decides what becomes active next.
func (r *Registry) Remove(sessionID string) bool {
	if _, ok := r.byID[sessionID]; !ok {
		return false
	}
	delete(r.byID, sessionID)
	for i, s := range r.sessions {
		if s.SessionID == sessionID {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			break
		}
	}
	r.resort()
	return true
}

func (r *Registry) Get(sessionID string) (*domain.SessionSummary, bool) {
	s, ok := r.byID[sessionID]
	return s, ok
}

// List returns the summaries most-recent first.
func (r *Registry) List() []domain.SessionSummary {
	out := make([]domain.SessionSummary, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out
}

// MostRecent returns the most recently updated summary, if any.
func (r *Registry) MostRecent() (*domain.SessionSummary, bool) {
	if len(r.sessions) == 0 {
		return nil, false
	}
	return r.sessions[0], true
}

func (r *Registry) Len() int {
	return len(r.sessions)
}

// resort orders descending by UpdatedAt; zero timestamps sort last and ties
// keep their previous relative order.
func (r *Registry) resort() {
	sort.SliceStable(r.sessions, func(i, j int) bool {
		a, b := r.sessions[i].UpdatedAt, r.sessions[j].UpdatedAt
		if b.IsZero() {
			return !a.IsZero()
		}
		if a.IsZero() {
			return false
		}
		return a.After(b)
	})
}
