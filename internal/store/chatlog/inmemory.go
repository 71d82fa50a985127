package chatlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hopeflow/backend/internal/model/chat"
	"github.com/hopeflow/backend/internal/model/profile"
)

// InMemoryStore keeps records in process memory. Data is lost on restart.
type InMemoryStore struct {
	mu       sync.RWMutex
	records  map[string][]chat.Record
	profiles map[string]profile.Profile
	now      func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:  make(map[string][]chat.Record),
		profiles: make(map[string]profile.Profile),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryStore) Kind() string { return "memory" }

func (s *InMemoryStore) SaveMessage(_ context.Context, userID, message, response string, isVoice bool) (chat.Record, error) {
	if err := requireUser(userID); err != nil {
		return chat.Record{}, err
	}

	rec := chat.Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Response:  response,
		IsVoice:   isVoice,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.records[userID] = append(s.records[userID], rec)
	s.mu.Unlock()
	return rec, nil
}

func (s *InMemoryStore) ListMessages(_ context.Context, userID string, limit int) ([]chat.Record, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)

	s.mu.RLock()
	items := append([]chat.Record(nil), s.records[userID]...)
	s.mu.RUnlock()

	// newest first; insertion order breaks ties
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *InMemoryStore) DeleteMessage(_ context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.records[userID]
	for i, rec := range items {
		if rec.ID == id {
			s.records[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) GetProfile(_ context.Context, userID string) (profile.Profile, error) {
	if err := requireUser(userID); err != nil {
		return profile.Profile{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return profile.Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *InMemoryStore) UpdateProfile(_ context.Context, userID string, update profile.Update) (profile.Profile, error) {
	if err := requireUser(userID); err != nil {
		return profile.Profile{}, err
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = profile.Profile{ID: userID, CreatedAt: now}
	}
	update.Apply(&p)
	p.UpdatedAt = now
	s.profiles[userID] = p
	return p, nil
}

func (s *InMemoryStore) Close() error { return nil }
