package chatlog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/hopeflow/backend/internal/model/profile"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	mem := NewInMemoryStore()
	tick := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mem.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	lite, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "chatlog.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = lite.Close() })

	return map[string]Store{"memory": mem, "sqlite": lite}
}

func TestStoreRequiresUser(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.SaveMessage(ctx, "", "hi", "hello", false); !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("SaveMessage() error = %v, want ErrUnauthenticated", err)
			}
			if _, err := s.ListMessages(ctx, " ", 10); !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("ListMessages() error = %v, want ErrUnauthenticated", err)
			}
			if err := s.DeleteMessage(ctx, "", "x"); !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("DeleteMessage() error = %v, want ErrUnauthenticated", err)
			}
			if _, err := s.GetProfile(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("GetProfile() error = %v, want ErrUnauthenticated", err)
			}
			if _, err := s.UpdateProfile(ctx, "", profile.Update{}); !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("UpdateProfile() error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestStoreSaveAndListNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 1; i <= 3; i++ {
				rec, err := s.SaveMessage(ctx, "u1", fmt.Sprintf("message %d", i), "reply", i == 2)
				if err != nil {
					t.Fatalf("SaveMessage() error = %v", err)
				}
				if rec.ID == "" || rec.UserID != "u1" {
					t.Fatalf("unexpected record %+v", rec)
				}
			}
			if _, err := s.SaveMessage(ctx, "u2", "other user", "reply", false); err != nil {
				t.Fatalf("SaveMessage() error = %v", err)
			}

			items, err := s.ListMessages(ctx, "u1", 0)
			if err != nil {
				t.Fatalf("ListMessages() error = %v", err)
			}
			if len(items) != 3 {
				t.Fatalf("len(items) = %d, want 3", len(items))
			}
			if items[0].Message != "message 3" || items[2].Message != "message 1" {
				t.Fatalf("unexpected order: %q ... %q", items[0].Message, items[2].Message)
			}
			if !items[1].IsVoice {
				t.Fatalf("voice flag was not persisted")
			}

			limited, err := s.ListMessages(ctx, "u1", 2)
			if err != nil {
				t.Fatalf("ListMessages() error = %v", err)
			}
			if len(limited) != 2 {
				t.Fatalf("len(limited) = %d, want 2", len(limited))
			}
		})
	}
}

func TestStoreDeleteIsScopedToUser(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := s.SaveMessage(ctx, "u1", "hi", "hello", false)
			if err != nil {
				t.Fatalf("SaveMessage() error = %v", err)
			}

			if err := s.DeleteMessage(ctx, "u2", rec.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("DeleteMessage() by other user error = %v, want ErrNotFound", err)
			}
			if err := s.DeleteMessage(ctx, "u1", rec.ID); err != nil {
				t.Fatalf("DeleteMessage() error = %v", err)
			}
			if err := s.DeleteMessage(ctx, "u1", rec.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("second DeleteMessage() error = %v, want ErrNotFound", err)
			}

			items, _ := s.ListMessages(ctx, "u1", 10)
			if len(items) != 0 {
				t.Fatalf("len(items) = %d, want 0", len(items))
			}
		})
	}
}

func TestStoreProfileUpsert(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetProfile(ctx, "u1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetProfile() error = %v, want ErrNotFound", err)
			}

			email := "sam@example.com"
			created, err := s.UpdateProfile(ctx, "u1", profile.Update{Email: &email})
			if err != nil {
				t.Fatalf("UpdateProfile() error = %v", err)
			}
			if created.ID != "u1" || created.Email != email || created.FullName != "" {
				t.Fatalf("unexpected profile %+v", created)
			}

			name := "Sam Rivera"
			updated, err := s.UpdateProfile(ctx, "u1", profile.Update{FullName: &name})
			if err != nil {
				t.Fatalf("UpdateProfile() error = %v", err)
			}
			if updated.Email != email || updated.FullName != name {
				t.Fatalf("partial update lost fields: %+v", updated)
			}

			got, err := s.GetProfile(ctx, "u1")
			if err != nil {
				t.Fatalf("GetProfile() error = %v", err)
			}
			if got.FullName != name {
				t.Fatalf("FullName = %q, want %q", got.FullName, name)
			}
		})
	}
}

func TestNewStoreSelectsBackend(t *testing.T) {
	ctx := context.Background()

	mem, err := NewStore(ctx, "")
	if err != nil || mem.Kind() != "memory" {
		t.Fatalf("NewStore(\"\") = %v, %v", mem, err)
	}

	lite, err := NewStore(ctx, "sqlite://"+filepath.Join(t.TempDir(), "hopeflow.db"))
	if err != nil {
		t.Fatalf("NewStore(sqlite) error = %v", err)
	}
	defer lite.Close()
	if lite.Kind() != "sqlite" {
		t.Fatalf("Kind() = %q, want sqlite", lite.Kind())
	}
}
