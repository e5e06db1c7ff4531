package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pocketkart/pocketbot/internal/core"
)

type MemoriesRepo struct {
	db *sql.DB
}

func NewMemoriesRepo(db *sql.DB) *MemoriesRepo {
	return &MemoriesRepo{db: db}
}

func (r *MemoriesRepo) Get(ctx context.Context, userID string) (*core.UserMemory, error) {
	var mem core.UserMemory
	var traits, preferences string

	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, summary, traits, preferences, vector_id, last_updated_at
		 FROM user_memories WHERE user_id = ?`,
		userID,
	).Scan(&mem.UserID, &mem.Summary, &traits, &preferences, &mem.VectorID, &mem.LastUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user memory: %w", err)
	}

	if traits != "" {
		if err := json.Unmarshal([]byte(traits), &mem.Traits); err != nil {
			return nil, fmt.Errorf("failed to unmarshal traits: %w", err)
		}
	}
	if preferences != "" {
		if err := json.Unmarshal([]byte(preferences), &mem.Preferences); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}
	return &mem, nil
}

func (r *MemoriesRepo) Put(ctx context.Context, mem core.UserMemory) error {
	traits, err := marshalJSON(mem.Traits)
	if err != nil {
		return fmt.Errorf("failed to marshal traits: %w", err)
	}
	preferences, err := marshalJSON(mem.Preferences)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if mem.LastUpdatedAt.IsZero() {
		mem.LastUpdatedAt = time.Now().UTC()
	}

	// Wholesale replace: the record holds the latest summary, not a history
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_memories (user_id, summary, traits, preferences, vector_id, last_updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		     summary = excluded.summary,
		     traits = excluded.traits,
		     preferences = excluded.preferences,
		     vector_id = excluded.vector_id,
		     last_updated_at = excluded.last_updated_at`,
		mem.UserID, mem.Summary, traits, preferences, mem.VectorID, mem.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user memory: %w", err)
	}
	return nil
}

func (r *MemoriesRepo) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_memories WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user memory: %w", err)
	}
	return nil
}
