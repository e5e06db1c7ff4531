// Package memory manages the two memory tiers of the bot: the per-session
// short-term window stored with the conversation, and the per-user long-term
// summary that is embedded into the vector index for semantic recall.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/pkg/log"
)

type Service struct {
	conversations core.ConversationRepository
	memories      core.UserMemoryRepository
	generator     core.Generator
	embedder      core.Embedder
	index         core.VectorIndex
}

func NewService(
	conversations core.ConversationRepository,
	memories core.UserMemoryRepository,
	generator core.Generator,
	embedder core.Embedder,
	index core.VectorIndex,
) *Service {
	return &Service{
		conversations: conversations,
		memories:      memories,
		generator:     generator,
		embedder:      embedder,
		index:         index,
	}
}

func (s *Service) GetOrCreateConversation(ctx context.Context, sessionID string, user *core.UserInfo, flags core.FlagPatch) (*core.Conversation, error) {
	return s.conversations.GetOrCreate(ctx, sessionID, user, flags)
}

func (s *Service) GetConversation(ctx context.Context, sessionID string) (*core.Conversation, error) {
	return s.conversations.Get(ctx, sessionID)
}

// AppendMessages persists the new turns; the repository trims the history to
// the short-term window in the same transaction.
func (s *Service) AppendMessages(ctx context.Context, sessionID string, msgs []core.Message) error {
	return s.conversations.AppendMessages(ctx, sessionID, msgs)
}

// ShortTermContext renders the conversation's stored window as
// generation-ready role/content pairs. Bot turns map to the assistant role;
// system turns keep the system role.
func ShortTermContext(conv *core.Conversation) []core.ChatMessage {
	if conv == nil {
		return nil
	}
	out := make([]core.ChatMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		role := core.RoleUser
		switch m.Sender {
		case core.SenderBot:
			role = core.RoleAssistant
		case core.SenderSystem:
			role = core.RoleSystem
		}
		out = append(out, core.ChatMessage{Role: role, Content: m.Text})
	}
	return out
}

func (s *Service) ListConversations(ctx context.Context, limit int) ([]core.Conversation, error) {
	return s.conversations.List(ctx, limit)
}

func (s *Service) SetConversationStatus(ctx context.Context, sessionID, status string) error {
	return s.conversations.SetStatus(ctx, sessionID, status)
}

func (s *Service) GetUserMemory(ctx context.Context, userID string) (*core.UserMemory, error) {
	if userID == "" {
		return nil, nil
	}
	return s.memories.Get(ctx, userID)
}

// MemoryVectorID is the index key for a user's profile summary.
func MemoryVectorID(userID string) string {
	return "memory-" + userID
}

// UpdateUserMemory distills the conversation into a fresh profile summary,
// embeds it and replaces both the stored row and the vector record. The old
// summary is gone after this call; memory is a snapshot, not a journal.
func (s *Service) UpdateUserMemory(ctx context.Context, userID string, conv *core.Conversation) error {
	if userID == "" || conv == nil || len(conv.Messages) == 0 {
		return nil
	}

	summary, err := s.generator.Generate(ctx, core.GenerationRequest{
		SystemPrompt: summarySystemPrompt,
		UserMessage:  renderTranscript(conv),
		Temperature:  0.2,
	})
	if err != nil {
		return fmt.Errorf("summarize conversation: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil
	}

	vecs, err := s.embedder.Embed(ctx, []string{summary})
	if err != nil {
		return fmt.Errorf("embed memory summary: %w", err)
	}

	vectorID := MemoryVectorID(userID)
	err = s.index.Upsert(ctx, core.VectorRecord{
		ID:     vectorID,
		Values: vecs[0],
		Metadata: core.Metadata{
			"type":   "memory",
			"userId": userID,
			"chunk":  summary,
		},
	})
	if err != nil {
		return fmt.Errorf("upsert memory vector: %w", err)
	}

	mem := core.UserMemory{
		UserID:        userID,
		Summary:       summary,
		VectorID:      vectorID,
		LastUpdatedAt: time.Now().UTC(),
	}
	if err := s.memories.Put(ctx, mem); err != nil {
		return fmt.Errorf("store user memory: %w", err)
	}

	log.FromCtx(ctx).Debug().Str("user_id", userID).Msg("user memory refreshed")
	return nil
}

// DeleteUserMemory removes both the stored row and the vector record.
func (s *Service) DeleteUserMemory(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if err := s.index.Delete(ctx, MemoryVectorID(userID)); err != nil {
		return fmt.Errorf("delete memory vector: %w", err)
	}
	if err := s.memories.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user memory: %w", err)
	}
	return nil
}

func renderTranscript(conv *core.Conversation) string {
	var b strings.Builder
	for _, m := range conv.Messages {
		b.WriteString(m.Sender)
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
