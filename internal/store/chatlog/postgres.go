package chatlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hopeflow/backend/internal/model/chat"
	"github.com/hopeflow/backend/internal/model/profile"
)

// PostgresStore persists the chat log in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			message TEXT NOT NULL,
			response TEXT NOT NULL,
			is_voice BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_user_created ON chat_messages (user_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Kind() string { return "postgres" }

func (s *PostgresStore) SaveMessage(ctx context.Context, userID, message, response string, isVoice bool) (chat.Record, error) {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, user_id, message, response, is_voice, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID,
		rec.UserID,
		rec.Message,
		rec.Response,
		rec.IsVoice,
		rec.CreatedAt,
	)
	if err != nil {
		return chat.Record{}, fmt.Errorf("save message: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, userID string, limit int) ([]chat.Record, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, message, response, is_voice, created_at
		 FROM chat_messages WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID,
		limit,
	)
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

func (s *PostgresStore) DeleteMessage(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	if err := requireUser(userID); err != nil {
		return profile.Profile{}, err
	}

	var p profile.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, full_name, created_at, updated_at FROM user_profiles WHERE id=$1`,
		userID,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, userID string, update profile.Update) (profile.Profile, error) {
	if err := requireUser(userID); err != nil {
		return profile.Profile{}, err
	}

	var p profile.Profile
	err := s.pool.QueryRow(ctx,
		`INSERT INTO user_profiles (id, email, full_name)
		 VALUES ($1, COALESCE($2, ''), COALESCE($3, ''))
		 ON CONFLICT (id) DO UPDATE SET
			email = COALESCE($2, user_profiles.email),
			full_name = COALESCE($3, user_profiles.full_name),
			updated_at = now()
		 RETURNING id, email, full_name, created_at, updated_at`,
		userID,
		update.Email,
		update.FullName,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
