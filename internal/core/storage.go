package core

import "context"

type ConversationRepository interface {
	// GetOrCreate upserts a conversation. On an existing session the flag
	// patch is applied per key and non-empty user fields are merged
	// individually; on a new session the patch is applied over defaults.
	GetOrCreate(ctx context.Context, sessionID string, user *UserInfo, flags FlagPatch) (*Conversation, error)

	Get(ctx context.Context, sessionID string) (*Conversation, error)

	// AppendMessages pushes messages and trims the history to the last
	// ShortTermWindow entries in one transaction. A no-op for empty input
	// or an unknown session.
	AppendMessages(ctx context.Context, sessionID string, msgs []Message) error

	List(ctx context.Context, limit int) ([]Conversation, error)
	SetStatus(ctx context.Context, sessionID, status string) error
}

type UserMemoryRepository interface {
	Get(ctx context.Context, userID string) (*UserMemory, error)
	// Put replaces the stored memory wholesale.
	Put(ctx context.Context, mem UserMemory) error
	Delete(ctx context.Context, userID string) error
}

type EscalationRepository interface {
	// Create inserts the escalation and flips the conversation status to
	// escalated in the same transaction.
	Create(ctx context.Context, esc Escalation) (Escalation, error)
	List(ctx context.Context, limit int) ([]Escalation, error)
}
