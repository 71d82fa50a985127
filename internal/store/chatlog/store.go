package chatlog

import (
	"context"
	"errors"
	"strings"

	"github.com/hopeflow/backend/internal/model/chat"
	"github.com/hopeflow/backend/internal/model/profile"
)

// DefaultListLimit is the page size used when a caller passes no limit.
const DefaultListLimit = 50

var (
	// ErrUnauthenticated is returned for calls without a user ID.
	ErrUnauthenticated = errors.New("user not authenticated")
	// ErrNotFound is returned when a record or profile does not exist for the user.
	ErrNotFound = errors.New("not found")
)

// Store persists completed exchanges and user profiles.
type Store interface {
	SaveMessage(ctx context.Context, userID, message, response string, isVoice bool) (chat.Record, error)
	ListMessages(ctx context.Context, userID string, limit int) ([]chat.Record, error)
	DeleteMessage(ctx context.Context, userID, id string) error
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update profile.Update) (profile.Profile, error)
	Kind() string
	Close() error
}

// NewStore picks a backend from databaseURL: postgres:// or postgresql:// use
// PostgreSQL, sqlite:// or file: use SQLite, empty keeps everything in memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return NewInMemoryStore(), nil
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteStore(ctx, strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "file:"):
		return NewSQLiteStore(ctx, url)
	default:
		return NewPostgresStore(ctx, url)
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUnauthenticated
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
