package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketkart/pocketbot/internal/core"
)

type EscalationsRepo struct {
	db *sql.DB
}

func NewEscalationsRepo(db *sql.DB) *EscalationsRepo {
	return &EscalationsRepo{db: db}
}

// Create inserts the escalation and flips the originating conversation to
// escalated in one transaction, so a handoff can never exist against a
// conversation still marked open.
func (r *EscalationsRepo) Create(ctx context.Context, esc core.Escalation) (core.Escalation, error) {
	metadata, err := marshalJSON(esc.Metadata)
	if err != nil {
		return core.Escalation{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	snapshot := ""
	if esc.ConversationSnapshot != nil {
		data, err := json.Marshal(esc.ConversationSnapshot)
		if err != nil {
			return core.Escalation{}, fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		snapshot = string(data)
	}

	if esc.Status == "" {
		esc.Status = core.EscalationPending
	}
	esc.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Escalation{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO escalations (session_id, reason, status, metadata, conversation_snapshot, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		esc.SessionID, esc.Reason, esc.Status, metadata, snapshot, esc.CreatedAt,
	)
	if err != nil {
		return core.Escalation{}, fmt.Errorf("failed to insert escalation: %w", err)
	}

	if esc.ID, err = res.LastInsertId(); err != nil {
		return core.Escalation{}, err
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE conversations SET status = ?, updated_at = ? WHERE session_id = ?`,
		core.StatusEscalated, esc.CreatedAt, esc.SessionID,
	)
	if err != nil {
		return core.Escalation{}, fmt.Errorf("failed to escalate conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Escalation{}, err
	} else if n == 0 {
		// Rolls back the insert too: no orphan escalations
		return core.Escalation{}, core.ErrConversationNotFound
	}

	if err := tx.Commit(); err != nil {
		return core.Escalation{}, err
	}
	return esc, nil
}

func (r *EscalationsRepo) List(ctx context.Context, limit int) ([]core.Escalation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, reason, status, metadata, conversation_snapshot, created_at
		 FROM escalations ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query escalations: %w", err)
	}
	defer rows.Close()

	var escalations []core.Escalation
	for rows.Next() {
		esc, err := scanEscalation(rows)
		if err != nil {
			return nil, err
		}
		escalations = append(escalations, esc)
	}
	return escalations, rows.Err()
}

func scanEscalation(rows *sql.Rows) (core.Escalation, error) {
	var esc core.Escalation
	var metadata, snapshot string

	if err := rows.Scan(&esc.ID, &esc.SessionID, &esc.Reason, &esc.Status, &metadata, &snapshot, &esc.CreatedAt); err != nil {
		return core.Escalation{}, fmt.Errorf("failed to scan escalation: %w", err)
	}

	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &esc.Metadata); err != nil {
			return core.Escalation{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if snapshot != "" {
		esc.ConversationSnapshot = &core.Conversation{}
		if err := json.Unmarshal([]byte(snapshot), esc.ConversationSnapshot); err != nil {
			return core.Escalation{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
	}
	return esc, nil
}
