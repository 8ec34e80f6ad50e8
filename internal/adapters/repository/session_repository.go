package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/taskboard/internal/ports"
)

// SessionRepository implements ports.SessionStore on a sqlite key-value table
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sqlx.DB) ports.SessionStore {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM session_kv WHERE key = ?`

	var value string
	err := r.db.GetContext(ctx, &value, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get session value: %w", err)
	}

	return value, true, nil
}

func (r *SessionRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO session_kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set session value: %w", err)
	}

	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM session_kv WHERE key = ?`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete session value: %w", err)
	}

	return nil
}
