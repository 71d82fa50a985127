package chatlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hopeflow/backend/internal/model/chat"
	"github.com/hopeflow/backend/internal/model/profile"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_messages (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    message TEXT NOT NULL,
    response TEXT NOT NULL,
    is_voice BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_user_created ON chat_messages (user_id, created_at);

CREATE TABLE IF NOT EXISTS user_profiles (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    full_name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteStore persists the chat log in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer avoids "database is locked" under concurrent requests
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Kind() string { return "sqlite" }

func (s *SQLiteStore) SaveMessage(ctx context.Context, userID, message, response string, isVoice bool) (chat.Record, error) {
	if err := requireUser(userID); err != nil {
		return chat.Record{}, err
	}

	rec := chat.Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Response:  response,
		IsVoice:   isVoice,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO chat_messages (id, user_id, message, response, is_voice, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Message, rec.Response, rec.IsVoice, rec.CreatedAt)
	if err != nil {
		return chat.Record{}, fmt.Errorf("save message: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, userID string, limit int) ([]chat.Record, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, message, response, is_voice, created_at
        FROM chat_messages
        WHERE user_id = ?
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	items := make([]chat.Record, 0, limit)
	for rows.Next() {
		var r chat.Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.Message, &r.Response, &r.IsVoice, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) DeleteMessage(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	if err := requireUser(userID); err != nil {
		return profile.Profile{}, err
	}

	var p profile.Profile
	err := s.db.QueryRowContext(ctx, `
        SELECT id, email, full_name, created_at, updated_at
        FROM user_profiles WHERE id = ?`, userID,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID string, update profile.Update) (profile.Profile, error) {
	if err := requireUser(userID); err != nil {
		return profile.Profile{}, err
	}

	now := time.Now().UTC()
	var p profile.Profile
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO user_profiles (id, email, full_name, created_at, updated_at)
        VALUES (?, COALESCE(?, ''), COALESCE(?, ''), ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            email = COALESCE(?, user_profiles.email),
            full_name = COALESCE(?, user_profiles.full_name),
            updated_at = excluded.updated_at
        RETURNING id, email, full_name, created_at, updated_at`,
		userID, update.Email, update.FullName, now, now, update.Email, update.FullName,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
