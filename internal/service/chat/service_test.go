package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hopeflow/backend/internal/analysis/emotion"
	modelchat "github.com/hopeflow/backend/internal/model/chat"
	"github.com/hopeflow/backend/internal/model/profile"
	"github.com/hopeflow/backend/internal/service/chat"
	"github.com/hopeflow/backend/internal/service/conversation"
	"github.com/hopeflow/backend/internal/store/chatlog"
)

type fakeGenerator struct {
	reply  string
	err    error
	calls  int
	tone   emotion.Tone
	recent []modelchat.Exchange
}

func (f *fakeGenerator) Generate(_ context.Context, message string, tone emotion.Tone, recent []modelchat.Exchange) (string, error) {
	f.calls++
	f.tone = tone
	f.recent = recent
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type failingStore struct {
	*chatlog.InMemoryStore
}

func (failingStore) SaveMessage(context.Context, string, string, string, bool) (modelchat.Record, error) {
	return modelchat.Record{}, errors.New("database unavailable")
}

func newService(gen chat.Generator, store chatlog.Store) (*chat.Service, *conversation.Manager) {
	conversations := conversation.NewManager(conversation.ExpiryPolicy{})
	return chat.NewService(gen, conversations, store, nil, nil), conversations
}

func TestTalkRecordsAndPersists(t *testing.T) {
	gen := &fakeGenerator{reply: "That sounds exhausting. What's weighing on you most?"}
	store := chatlog.NewInMemoryStore()
	svc, conversations := newService(gen, store)
	ctx := context.Background()

	reply, err := svc.Talk(ctx, "u1", "  I'm so overwhelmed with work  ", true)
	if err != nil {
		t.Fatalf("Talk err: %v", err)
	}
	if reply.Tone != emotion.Stressed || reply.SupportType != emotion.StressRelief {
		t.Fatalf("unexpected classification %+v", reply)
	}
	if reply.Fallback || !reply.Saved || reply.RecordID == "" {
		t.Fatalf("unexpected flags %+v", reply)
	}

	history := conversations.Get("u1").History()
	if len(history) != 1 || history[0].Message != "I'm so overwhelmed with work" {
		t.Fatalf("unexpected conversation history %+v", history)
	}

	records, _ := store.ListMessages(ctx, "u1", 0)
	if len(records) != 1 || !records[0].IsVoice {
		t.Fatalf("unexpected saved records %+v", records)
	}
}

func TestTalkPassesRecentContext(t *testing.T) {
	gen := &fakeGenerator{reply: "I'm listening."}
	svc, _ := newService(gen, chatlog.NewInMemoryStore())
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three", "four"} {
		if _, err := svc.Talk(ctx, "u1", msg, false); err != nil {
			t.Fatalf("Talk err: %v", err)
		}
	}

	if len(gen.recent) != 3 || gen.recent[0].Message != "one" || gen.recent[2].Message != "three" {
		t.Fatalf("unexpected context passed to generator: %+v", gen.recent)
	}
}

func TestTalkFallsBackOnGenerationError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream 503")}
	store := chatlog.NewInMemoryStore()
	svc, conversations := newService(gen, store)
	ctx := context.Background()

	reply, err := svc.Talk(ctx, "u1", "I want to end my life", false)
	if err != nil {
		t.Fatalf("Talk err: %v", err)
	}
	if !reply.Fallback || reply.Response != chat.FallbackResponse {
		t.Fatalf("expected fallback reply, got %+v", reply)
	}
	if reply.Tone != emotion.Crisis {
		t.Fatalf("tone = %q, want crisis", reply.Tone)
	}
	if !strings.Contains(reply.Response, "1800-599-0019") {
		t.Fatalf("fallback must reference the helpline")
	}
	if len(conversations.Get("u1").History()) != 0 {
		t.Fatalf("history must not change on failure")
	}
	if records, _ := store.ListMessages(ctx, "u1", 0); len(records) != 0 {
		t.Fatalf("fallback replies are not persisted")
	}
}

func TestTalkPersistenceFailureStillReplies(t *testing.T) {
	gen := &fakeGenerator{reply: "I'm glad you reached out."}
	svc, _ := newService(gen, failingStore{chatlog.NewInMemoryStore()})

	reply, err := svc.Talk(context.Background(), "u1", "hello", false)
	if err != nil {
		t.Fatalf("Talk err: %v", err)
	}
	if reply.Saved || reply.Response != "I'm glad you reached out." {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestTalkValidatesInput(t *testing.T) {
	svc, _ := newService(&fakeGenerator{reply: "ok"}, chatlog.NewInMemoryStore())
	ctx := context.Background()

	if _, err := svc.Talk(ctx, "", "hello", false); !errors.Is(err, chat.ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
	if _, err := svc.Talk(ctx, "u1", "   ", false); !errors.Is(err, chat.ErrMessageRequired) {
		t.Fatalf("expected ErrMessageRequired, got %v", err)
	}
}

func TestResetAndState(t *testing.T) {
	svc, _ := newService(&fakeGenerator{reply: "That's wonderful to hear."}, chatlog.NewInMemoryStore())
	ctx := context.Background()

	if _, err := svc.Talk(ctx, "u1", "I feel happy and grateful today", false); err != nil {
		t.Fatalf("Talk err: %v", err)
	}

	state := svc.State("u1")
	if !state.Active || len(state.History) != 1 || state.Tone != emotion.Positive {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.Greeting != conversation.PositiveGreeting {
		t.Fatalf("greeting = %q", state.Greeting)
	}

	svc.Reset("u1")
	state = svc.State("u1")
	if state.Active || len(state.History) != 0 || state.Greeting != conversation.FirstGreeting {
		t.Fatalf("unexpected state after reset %+v", state)
	}
}

func TestDeleteHistoryNotFound(t *testing.T) {
	svc, _ := newService(&fakeGenerator{reply: "ok"}, chatlog.NewInMemoryStore())
	if err := svc.DeleteHistory(context.Background(), "u1", "missing"); !errors.Is(err, chat.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestProfileFallsBackToIdentity(t *testing.T) {
	svc, _ := newService(&fakeGenerator{reply: "ok"}, chatlog.NewInMemoryStore())
	ctx := context.Background()

	p, err := svc.Profile(ctx, "u1", "sam@example.com")
	if err != nil {
		t.Fatalf("Profile err: %v", err)
	}
	if p.ID != "u1" || p.Email != "sam@example.com" {
		t.Fatalf("unexpected profile %+v", p)
	}

	name := "Sam"
	if _, err := svc.UpdateProfile(ctx, "u1", profile.Update{FullName: &name}); err != nil {
		t.Fatalf("UpdateProfile err: %v", err)
	}
	p, _ = svc.Profile(ctx, "u1", "sam@example.com")
	if p.FullName != "Sam" {
		t.Fatalf("FullName = %q, want Sam", p.FullName)
	}
}
