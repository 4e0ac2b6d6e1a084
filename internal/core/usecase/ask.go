package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vqhuy/docchat/internal/core/domain"
	"github.com/vqhuy/docchat/internal/core/ports"
)

// Ask runs one question round trip. The optimistic user-message append
// happens before the network call, and the forced chat-history reload happens
// after the call resolves, success or failure, so the cached transcript
// always reflects server truth once the round trip completes. The busy flag
// is cleared on every path.
func (o *Orchestrator) Ask(ctx context.Context, query string) (*ports.AskOutcome, error) {
	if err := o.acquire(&o.isAsking, "ask"); err != nil {
		return nil, err
	}
	defer func() { o.isAsking = false }()

	summary, err := o.requireActive("ask")
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("empty question"))
	}
	if !o.canAsk {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("session has no ingested documents yet"))
	}

	chatID := summary.PrimaryChatID
	if chatID != "" {
		o.chats.Append(chatID, domain.Message{
			Role:      domain.RoleUser,
			Content:   query,
			Timestamp: time.Now().UTC(),
		})
		o.chats.Append(chatID, domain.Message{
			Role:    domain.RoleAssistant,
			Pending: true,
		})
	}

	result, askErr := o.api.Ask(ctx, o.activeSession, chatID, query)
	if askErr != nil {
		// Server truth still wins: drop the optimistic messages by
		// forcing a reload of whatever the server recorded.
		if chatID != "" {
			if _, err := o.chats.FetchIfStale(ctx, o.activeSession, chatID, true); err != nil {
				o.log.Warn("chat_reload_failed", "chat_id", chatID, "error", err)
			}
		}
		o.notify.Notify("error", "The question could not be answered.")
		return nil, fmt.Errorf("ask: %w", askErr)
	}

	if result.Chat.ChatID != "" {
		chatID = result.Chat.ChatID
	}
	o.chats.MergeMeta(result.Chat, nil)

	patch := domain.SessionPatch{
		SessionID:     o.activeSession,
		PrimaryChatID: domain.StringPtr(chatID),
	}
	if result.Chat.MessageCount > 0 {
		patch.MessageCount = domain.IntPtr(result.Chat.MessageCount)
	}
	if !result.Chat.UpdatedAt.IsZero() {
		patch.UpdatedAt = domain.TimePtr(result.Chat.UpdatedAt)
	}
	o.registry.Upsert(patch)

	chat, err := o.chats.FetchIfStale(ctx, o.activeSession, chatID, true)
	if err != nil {
		o.log.Warn("chat_reload_failed", "chat_id", chatID, "error", err)
	}

	refs, marked := o.marker.Annotate(result.Answer)
	return &ports.AskOutcome{
		Answer:       result.Answer,
		MarkedAnswer: marked,
		Confidence:   result.Confidence,
		Refs:         refs,
		Citations:    result.Citations,
		LatencyMS:    result.LatencyMS,
		Chat:         chat,
	}, nil
}

// Busy reports whether any exclusive operation is currently in flight.
func (o *Orchestrator) Busy() bool {
	return o.isUploading || o.isIngesting || o.isAsking
}
