package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hopeflow/backend/internal/analysis/emotion"
)

func TestManagerGetReturnsSameConversation(t *testing.T) {
	m := NewManager(ExpiryPolicy{})
	a := m.Get("u1")
	b := m.Get("u1")
	if a != b {
		t.Fatalf("expected the same conversation for one user")
	}
	if m.Get("u2") == a {
		t.Fatalf("users must not share conversations")
	}
}

func TestManagerResetAndDispose(t *testing.T) {
	m := NewManager(ExpiryPolicy{})
	c := m.Get("u1")
	c.RecordExchange("hi", "hello", emotion.Neutral)

	m.Reset("u1")
	if len(c.History()) != 0 {
		t.Fatalf("Reset() should clear history")
	}

	m.Dispose("u1")
	if m.Get("u1") == c {
		t.Fatalf("Dispose() should forget the conversation")
	}
	m.Reset("missing")
}

func TestManagerActiveCount(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(ExpiryPolicy{Timeout: time.Minute}, WithClock(clock.Now))

	m.Get("u1").RecordExchange("hi", "hello", emotion.Neutral)
	m.Get("u2")
	if got := m.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", got)
	}

	clock.Advance(2 * time.Minute)
	if got := m.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", got)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	clock := newFakeClock()
	var (
		mu      sync.Mutex
		expired []string
	)
	m := NewManager(ExpiryPolicy{Timeout: time.Minute},
		WithClock(clock.Now),
		WithExpireHook(func(userID string) {
			mu.Lock()
			defer mu.Unlock()
			expired = append(expired, userID)
		}))

	c := m.Get("u1")
	c.RecordExchange("hi", "hello", emotion.Neutral)
	m.Get("u2").RecordExchange("hi", "hello", emotion.Neutral)
	clock.Advance(30 * time.Second)
	m.Get("u2").Touch()
	clock.Advance(45 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(expired) > 0
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if len(c.History()) != 0 {
		t.Fatalf("janitor did not clear the idle conversation")
	}
	if len(m.Get("u2").History()) != 1 {
		t.Fatalf("janitor cleared an active conversation")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(expired) == 0 || expired[0] != "u1" {
		t.Fatalf("expire hook calls = %v, want [u1]", expired)
	}
}
