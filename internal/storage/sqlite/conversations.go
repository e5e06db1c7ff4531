package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/pkg/log"
)

type ConversationsRepo struct {
	db *sql.DB
}

func NewConversationsRepo(db *sql.DB) *ConversationsRepo {
	return &ConversationsRepo{db: db}
}

func (r *ConversationsRepo) GetOrCreate(ctx context.Context, sessionID string, user *core.UserInfo, flags core.FlagPatch) (*core.Conversation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	existing, err := scanConversation(tx.QueryRowContext(ctx, convSelect+` WHERE session_id = ?`, sessionID))
	switch {
	case err == nil:
		existing.FeatureFlags = flags.Apply(existing.FeatureFlags)
		if user != nil {
			// Merge fields individually, never wholesale
			if user.ID != "" {
				existing.User.ID = user.ID
			}
			if user.Email != "" {
				existing.User.Email = user.Email
			}
			if user.Name != "" {
				existing.User.Name = user.Name
			}
		}
		existing.UpdatedAt = now

		_, err = tx.ExecContext(ctx,
			`UPDATE conversations
			 SET user_id = ?, user_email = ?, user_name = ?,
			     flag_rag = ?, flag_web_search = ?, flag_memory = ?, updated_at = ?
			 WHERE session_id = ?`,
			existing.User.ID, existing.User.Email, existing.User.Name,
			existing.FeatureFlags.RAG, existing.FeatureFlags.WebSearch, existing.FeatureFlags.Memory,
			now, sessionID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update conversation: %w", err)
		}

		if existing.Messages, err = loadMessages(ctx, tx, sessionID); err != nil {
			return nil, err
		}
		return existing, tx.Commit()

	case errors.Is(err, core.ErrConversationNotFound):
		conv := &core.Conversation{
			SessionID:        sessionID,
			FeatureFlags:     flags.Apply(core.DefaultFeatureFlags()),
			Status:           core.StatusOpen,
			LastInteractedAt: now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if user != nil {
			conv.User = *user
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversations
			 (session_id, user_id, user_email, user_name, flag_rag, flag_web_search, flag_memory, status, last_interacted_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, conv.User.ID, conv.User.Email, conv.User.Name,
			conv.FeatureFlags.RAG, conv.FeatureFlags.WebSearch, conv.FeatureFlags.Memory,
			conv.Status, now, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert conversation: %w", err)
		}
		return conv, tx.Commit()

	default:
		return nil, err
	}
}

func (r *ConversationsRepo) Get(ctx context.Context, sessionID string) (*core.Conversation, error) {
	conv, err := scanConversation(r.db.QueryRowContext(ctx, convSelect+` WHERE session_id = ?`, sessionID))
	if err != nil {
		return nil, err
	}
	if conv.Messages, err = loadMessages(ctx, r.db, sessionID); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *ConversationsRepo) AppendMessages(ctx context.Context, sessionID string, msgs []core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var convID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM conversations WHERE session_id = ?`, sessionID).Scan(&convID)
	if errors.Is(err, sql.ErrNoRows) {
		// Unknown session: appending is a no-op, not an error
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve conversation: %w", err)
	}

	now := time.Now().UTC()
	for _, msg := range msgs {
		if msg.Type == "" {
			msg.Type = "message"
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}

		sources, err := marshalJSON(msg.Sources)
		if err != nil {
			return fmt.Errorf("failed to marshal sources: %w", err)
		}
		meta, err := marshalJSON(msg.Meta)
		if err != nil {
			return fmt.Errorf("failed to marshal meta: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_messages (conversation_id, sender, text, type, intent, sources, meta, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			convID, msg.Sender, msg.Text, msg.Type, string(msg.Intent), sources, meta, msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	// FIFO eviction down to the short-term window
	_, err = tx.ExecContext(ctx,
		`DELETE FROM conversation_messages
		 WHERE conversation_id = ?
		   AND id NOT IN (
		       SELECT id FROM conversation_messages
		       WHERE conversation_id = ?
		       ORDER BY id DESC LIMIT ?
		   )`,
		convID, convID, core.ShortTermWindow,
	)
	if err != nil {
		return fmt.Errorf("failed to trim messages: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET last_interacted_at = ?, updated_at = ? WHERE id = ?`,
		now, now, convID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}

	return tx.Commit()
}

func (r *ConversationsRepo) List(ctx context.Context, limit int) ([]core.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, convSelect+` ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []core.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range conversations {
		if conversations[i].Messages, err = loadMessages(ctx, r.db, conversations[i].SessionID); err != nil {
			return nil, err
		}
	}

	log.FromCtx(ctx).Debug().Int("count", len(conversations)).Msg("listed conversations")
	return conversations, nil
}

func (r *ConversationsRepo) SetStatus(ctx context.Context, sessionID, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET status = ?, updated_at = ? WHERE session_id = ?`,
		status, time.Now().UTC(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrConversationNotFound
	}
	return nil
}

const convSelect = `
	SELECT session_id, user_id, user_email, user_name,
	       flag_rag, flag_web_search, flag_memory,
	       status, last_interacted_at, created_at, updated_at
	FROM conversations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*core.Conversation, error) {
	var conv core.Conversation
	err := row.Scan(
		&conv.SessionID, &conv.User.ID, &conv.User.Email, &conv.User.Name,
		&conv.FeatureFlags.RAG, &conv.FeatureFlags.WebSearch, &conv.FeatureFlags.Memory,
		&conv.Status, &conv.LastInteractedAt, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}
	return &conv, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadMessages(ctx context.Context, q querier, sessionID string) ([]core.Message, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT m.sender, m.text, m.type, m.intent, m.sources, m.meta, m.created_at
		 FROM conversation_messages m
		 JOIN conversations c ON c.id = m.conversation_id
		 WHERE c.session_id = ?
		 ORDER BY m.id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []core.Message
	for rows.Next() {
		var msg core.Message
		var intent, sources, meta string
		if err := rows.Scan(&msg.Sender, &msg.Text, &msg.Type, &intent, &sources, &meta, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Intent = core.Intent(intent)

		if sources != "" {
			if err := json.Unmarshal([]byte(sources), &msg.Sources); err != nil {
				return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
			}
		}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &msg.Meta); err != nil {
				return nil, fmt.Errorf("failed to unmarshal meta: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// marshalJSON stores nil/empty values as empty strings to save space.
func marshalJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	s := string(data)
	if s == "null" || s == "[]" || s == "{}" {
		return "", nil
	}
	return s, nil
}
