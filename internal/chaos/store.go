// Package chaos persists per-user UI theming state ("chaos"). The blob is
// opaque to the backend beyond being a JSON object; at most one record
// lives per user and a write replaces it entirely.
package chaos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"stockshock-backend/internal/common/logger"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS ui_preferences (
	user_id TEXT PRIMARY KEY,
	chaos_json TEXT,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db: db,
		logger: log.With(map[string]interface{}{
			"component": "chaos-store",
		}),
	}
}

// EnsureSchema creates the backing table; run once at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create ui_preferences table: %w", err)
	}
	return nil
}

// Get returns the stored chaos state for userID, or nil when the user has
// never set one. Absence is nil, never an empty object: callers must be
// able to omit theming entirely for unknown users. A corrupt blob is
// treated as absence rather than failing the request.
func (s *Store) Get(ctx context.Context, userID string) (map[string]interface{}, error) {
	if userID == "" {
		return nil, nil
	}

	var chaosJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT chaos_json FROM ui_preferences WHERE user_id = ?", userID,
	).Scan(&chaosJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query chaos state: %w", err)
	}

	if !chaosJSON.Valid || chaosJSON.String == "" {
		return nil, nil
	}

	var state map[string]interface{}
	if err := json.Unmarshal([]byte(chaosJSON.String), &state); err != nil {
		s.logger.Warn("dropping unparseable chaos blob", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return nil, nil
	}

	return state, nil
}

// Set replaces the stored chaos state for userID, last write wins. The
// delete-then-insert runs in one transaction so the single-record-per-user
// invariant holds even under concurrent writers.
func (s *Store) Set(ctx context.Context, userID string, state map[string]interface{}) error {
	if userID == "" || state == nil {
		return nil
	}

	chaosJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal chaos state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chaos write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM ui_preferences WHERE user_id = ?", userID,
	); err != nil {
		return fmt.Errorf("delete prior chaos state: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO ui_preferences (user_id, chaos_json, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		userID, string(chaosJSON),
	); err != nil {
		return fmt.Errorf("insert chaos state: %w", err)
	}

	return tx.Commit()
}
