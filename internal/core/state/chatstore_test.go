package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vqhuy/docchat/internal/core/domain"
)

type historyFake struct {
	chat  *domain.Chat
	err   error
	calls int
}

func (f *historyFake) GetChat(_ context.Context, _, chatID string) (*domain.Chat, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	copyChat := *f.chat
	copyChat.ChatID = chatID
	return &copyChat, nil
}

func TestGetOrCreateNeverFails(t *testing.T) {
	s := NewChatStore(&historyFake{})
	chat := s.GetOrCreate("c1")
	if chat == nil || chat.ChatID != "c1" || len(chat.Messages) != 0 {
		t.Fatalf("unexpected chat %+v", chat)
	}
	if s.GetOrCreate("c1") != chat {
		t.Fatalf("expected same instance on second call")
	}
}

func TestMergeMetaKeepsLoadedMessages(t *testing.T) {
	s := NewChatStore(&historyFake{})
	s.Append("c1", domain.Message{Role: domain.RoleUser, Content: "hi"})

	s.MergeMeta(domain.ChatMeta{ChatID: "c1", Title: "renamed", MessageCount: 4}, nil)

	chat := s.GetOrCreate("c1")
	if chat.Title != "renamed" || chat.MessageCount != 4 {
		t.Fatalf("meta not merged: %+v", chat)
	}
	if len(chat.Messages) != 1 {
		t.Fatalf("loaded messages discarded")
	}
}

func TestMergeMetaReplacementListWins(t *testing.T) {
	s := NewChatStore(&historyFake{})
	s.Append("c1", domain.Message{Content: "stale"})

	s.MergeMeta(domain.ChatMeta{ChatID: "c1"}, []domain.Message{})

	chat := s.GetOrCreate("c1")
	if len(chat.Messages) != 0 || chat.MessageCount != 0 {
		t.Fatalf("replacement list not applied: %+v", chat)
	}
}

func TestFetchIfStaleSkipsWarmCache(t *testing.T) {
	loader := &historyFake{chat: &domain.Chat{Messages: []domain.Message{{Content: "server"}}}}
	s := NewChatStore(loader)
	s.Append("c1", domain.Message{Content: "cached"})

	chat, err := s.FetchIfStale(context.Background(), "s1", "c1", false)
	if err != nil {
		t.Fatalf("FetchIfStale() error = %v", err)
	}
	if loader.calls != 0 {
		t.Fatalf("warm cache triggered a fetch")
	}
	if chat.Messages[0].Content != "cached" {
		t.Fatalf("cached messages replaced")
	}
}

func TestFetchIfStaleLoadsEmptyCache(t *testing.T) {
	loader := &historyFake{chat: &domain.Chat{
		Title:    "chat",
		Messages: []domain.Message{{Content: "one"}, {Content: "two"}},
	}}
	s := NewChatStore(loader)

	chat, err := s.FetchIfStale(context.Background(), "s1", "c1", false)
	if err != nil {
		t.Fatalf("FetchIfStale() error = %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected one fetch, got %d", loader.calls)
	}
	if len(chat.Messages) != 2 || chat.MessageCount != 2 {
		t.Fatalf("history not loaded: %+v", chat)
	}
}

func TestFetchIfStaleForceReplacesWholesale(t *testing.T) {
	loader := &historyFake{chat: &domain.Chat{Messages: []domain.Message{{Content: "fresh"}}}}
	s := NewChatStore(loader)
	s.Append("c1", domain.Message{Content: "optimistic", Timestamp: time.Now()})
	s.Append("c1", domain.Message{Content: "placeholder", Pending: true})

	chat, err := s.FetchIfStale(context.Background(), "s1", "c1", true)
	if err != nil {
		t.Fatalf("FetchIfStale() error = %v", err)
	}
	if len(chat.Messages) != 1 || chat.Messages[0].Content != "fresh" {
		t.Fatalf("message list not replaced wholesale: %+v", chat.Messages)
	}
}

func TestFetchIfStaleKeepsCacheOnLoadError(t *testing.T) {
	loader := &historyFake{err: errors.New("boom")}
	s := NewChatStore(loader)
	s.Append("c1", domain.Message{Content: "cached"})

	chat, err := s.FetchIfStale(context.Background(), "s1", "c1", true)
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(chat.Messages) != 1 {
		t.Fatalf("cache mutated on failed load: %+v", chat.Messages)
	}
}

func TestRetainDropsAbsentChats(t *testing.T) {
	s := NewChatStore(&historyFake{})
	s.GetOrCreate("keep")
	s.GetOrCreate("drop")

	s.Retain([]string{"keep"})

	ids := s.ChatIDs()
	if len(ids) != 1 || ids[0] != "keep" {
		t.Fatalf("unexpected retained ids %v", ids)
	}
}

func TestReplacePendingSwapsPlaceholder(t *testing.T) {
	s := NewChatStore(&historyFake{})
	s.Append("c1", domain.Message{Role: domain.RoleUser, Content: "q"})
	s.Append("c1", domain.Message{Role: domain.RoleAssistant, Pending: true})

	s.ReplacePending("c1", domain.Message{Role: domain.RoleAssistant, Content: "answer"})

	chat := s.GetOrCreate("c1")
	if len(chat.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(chat.Messages))
	}
	last := chat.Messages[1]
	if last.Pending || last.Content != "answer" {
		t.Fatalf("placeholder not replaced: %+v", last)
	}
}
