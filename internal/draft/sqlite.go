package draft

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Save(ctx context.Context, userID, key string, value []byte) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO drafts (user_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID,
		key,
		string(value),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, userID, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT value FROM drafts WHERE user_id = ? AND key = ?`,
		userID,
		key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return []byte(value), nil
}

func (s *SQLiteStore) Clear(ctx context.Context, userID, key string) error {
	if _, err := s.db.ExecContext(
		ctx,
		`DELETE FROM drafts WHERE user_id = ? AND key = ?`,
		userID,
		key,
	); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
