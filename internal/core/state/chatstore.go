// Package state holds the client-resident caches the orchestrator reconciles
// against server responses: the per-chat message cache, the session registry
// and the active session's file list. All three are mutated from a single
// goroutine by the orchestrator's handlers.
package state

import (
	"context"
	"fmt"
	"sort"

	"github.com/vqhuy/docchat/internal/core/domain"
)

// HistoryLoader fetches the full message history for one chat.
type HistoryLoader interface {
	GetChat(ctx context.Context, sessionID, chatID string) (*domain.Chat, error)
}

// ChatStore caches at most one Chat per chat id.
type ChatStore struct {
	loader HistoryLoader
	chats  map[string]*domain.Chat
}

func NewChatStore(loader HistoryLoader) *ChatStore {
	return &ChatStore{
		loader: loader,
		chats:  make(map[string]*domain.Chat),
	}
}

// GetOrCreate returns the cached chat or creates an empty one. It never fails.
func (s *ChatStore) GetOrCreate(chatID string) *domain.Chat {
	if chat, ok := s.chats[chatID]; ok {
		return chat
	}
	chat := &domain.Chat{ChatID: chatID}
	s.chats[chatID] = chat
	return chat
}

// MergeMeta shallow-merges server-reported summary fields into the cached
// chat. Already-loaded messages are kept unless replacement is non-nil, in
// which case the message list is swapped wholesale.
func (s *ChatStore) MergeMeta(meta domain.ChatMeta, replacement []domain.Message) {
	chat := s.GetOrCreate(meta.ChatID)
	if meta.Title != "" {
		chat.Title = meta.Title
	}
	if meta.MessageCount > 0 {
		chat.MessageCount = meta.MessageCount
	}
	if replacement != nil {
		chat.Messages = replacement
		chat.MessageCount = len(replacement)
	}
}

// FetchIfStale returns the cached chat untouched unless force is set or the
// cache holds zero messages; in those cases the full history is fetched and
// the message list replaced wholesale. This avoids redundant history calls on
// session re-selection while keeping a full reload available whenever
// correctness requires it (after ingest, ask or delete).
func (s *ChatStore) FetchIfStale(ctx context.Context, sessionID, chatID string, force bool) (*domain.Chat, error) {
	chat := s.GetOrCreate(chatID)
	if !force && len(chat.Messages) > 0 {
		return chat, nil
	}

	fresh, err := s.loader.GetChat(ctx, sessionID, chatID)
	if err != nil {
		return chat, fmt.Errorf("load chat history: %w", err)
	}
	if fresh.Title != "" {
		chat.Title = fresh.Title
	}
	chat.Messages = fresh.Messages
	chat.MessageCount = fresh.MessageCount
	if chat.MessageCount == 0 {
		chat.MessageCount = len(fresh.Messages)
	}
	return chat, nil
}

// Append adds an optimistic local message to the cached chat.
func (s *ChatStore) Append(chatID string, msg domain.Message) {
	chat := s.GetOrCreate(chatID)
	chat.Messages = append(chat.Messages, msg)
}

// ReplacePending swaps the trailing in-flight assistant placeholder, if any,
// for the delivered message.
func (s *ChatStore) ReplacePending(chatID string, msg domain.Message) {
	chat := s.GetOrCreate(chatID)
	for i := len(chat.Messages) - 1; i >= 0; i-- {
		if chat.Messages[i].Pending {
			chat.Messages[i] = msg
			return
		}
	}
	chat.Messages = append(chat.Messages, msg)
}

// Retain drops message caches for chat ids absent from the latest summary
// list the server reported for the session.
func (s *ChatStore) Retain(chatIDs []string) {
	keep := make(map[string]struct{}, len(chatIDs))
	for _, id := range chatIDs {
		keep[id] = struct{}{}
	}
	for id := range s.chats {
		if _, ok := keep[id]; !ok {
			delete(s.chats, id)
		}
	}
}

// Reset drops every cached chat, used on session switch.
func (s *ChatStore) Reset() {
	s.chats = make(map[string]*domain.Chat)
}

// ChatIDs returns the cached ids in stable order.
func (s *ChatStore) ChatIDs() []string {
	out := make([]string, 0, len(s.chats))
	for id := range s.chats {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
