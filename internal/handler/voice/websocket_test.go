package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/hopeflow/backend/internal/analysis/emotion"
	"github.com/hopeflow/backend/internal/auth"
	"github.com/hopeflow/backend/internal/middleware"
	"github.com/hopeflow/backend/internal/model/chat"
	chatservice "github.com/hopeflow/backend/internal/service/chat"
	"github.com/hopeflow/backend/internal/service/conversation"
	voiceservice "github.com/hopeflow/backend/internal/service/voice"
	"github.com/hopeflow/backend/internal/store/chatlog"
)

type fakeGenerator struct{}

func (fakeGenerator) Generate(_ context.Context, message string, _ emotion.Tone, _ []chat.Exchange) (string, error) {
	return "I hear you: " + message + ".", nil
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type slowGenerator struct {
	delay time.Duration
}

func (g slowGenerator) Generate(ctx context.Context, message string, tone emotion.Tone, recent []chat.Exchange) (string, error) {
	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fakeGenerator{}.Generate(ctx, message, tone, recent)
}

func dial(t *testing.T) (*websocket.Conn, chatlog.Store) {
	t.Helper()
	return dialWith(t, fakeGenerator{}, readTimeout)
}

func dialWith(t *testing.T, generator chatservice.Generator, idle time.Duration) (*websocket.Conn, chatlog.Store) {
	t.Helper()

	store := chatlog.NewInMemoryStore()
	svc := chatservice.NewService(generator, conversation.NewManager(conversation.ExpiryPolicy{}), store, nil, nil)
	handler := NewWebSocketHandler(svc, voiceservice.DefaultSettings, nil, nil)
	handler.readTimeout = idle

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(auth.HeaderResolver{}, nil))
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/voice/ws?access_token=u1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn, store
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg envelope
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "data": data, "timestamp": time.Now().UnixMilli()}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestVoiceConversationFlow(t *testing.T) {
	conn, store := dial(t)

	if msg := read(t, conn); msg.Type != "connected" {
		t.Fatalf("expected connected, got %s", msg.Type)
	}

	send(t, conn, "transcript", map[string]any{"text": "I feel anxious", "isFinal": false})
	send(t, conn, "transcript", map[string]any{"text": "I feel anxious", "isFinal": true})

	reply := read(t, conn)
	if reply.Type != "reply" {
		t.Fatalf("expected reply, got %s", reply.Type)
	}
	var replyData map[string]any
	_ = json.Unmarshal(reply.Data, &replyData)
	if replyData["tone"] != "anxious" || replyData["response"] != "I hear you: I feel anxious." {
		t.Fatalf("unexpected reply %v", replyData)
	}

	started := read(t, conn)
	if started.Type != "speech" || !strings.Contains(string(started.Data), `"state":"start"`) {
		t.Fatalf("expected speech start, got %s %s", started.Type, started.Data)
	}

	speak := read(t, conn)
	if speak.Type != "speak" {
		t.Fatalf("expected speak, got %s", speak.Type)
	}
	var utterance voiceservice.Utterance
	_ = json.Unmarshal(speak.Data, &utterance)
	if utterance.ID == "" || utterance.Rate != 0.9 || utterance.Lang != "en-US" {
		t.Fatalf("unexpected utterance %+v", utterance)
	}

	send(t, conn, "speech", map[string]any{"utteranceId": utterance.ID, "state": "end"})
	ended := read(t, conn)
	if ended.Type != "speech" || !strings.Contains(string(ended.Data), `"state":"end"`) {
		t.Fatalf("expected speech end, got %s %s", ended.Type, ended.Data)
	}

	// a repeated final transcript is ignored, so the next message is the pong
	send(t, conn, "transcript", map[string]any{"text": "I feel anxious", "isFinal": true})
	send(t, conn, "ping", nil)
	if msg := read(t, conn); msg.Type != "pong" {
		t.Fatalf("expected pong, got %s", msg.Type)
	}

	records, _ := store.ListMessages(context.Background(), "u1", 0)
	if len(records) != 1 || !records[0].IsVoice {
		t.Fatalf("expected one voice record, got %+v", records)
	}
}

func TestVoiceSlowReplyKeepsConnection(t *testing.T) {
	conn, _ := dialWith(t, slowGenerator{delay: 600 * time.Millisecond}, 300*time.Millisecond)
	read(t, conn)

	send(t, conn, "transcript", map[string]any{"text": "I feel lost", "isFinal": true})
	for _, want := range []string{"reply", "speech", "speak"} {
		if msg := read(t, conn); msg.Type != want {
			t.Fatalf("expected %s, got %s", want, msg.Type)
		}
	}

	send(t, conn, "ping", nil)
	if msg := read(t, conn); msg.Type != "pong" {
		t.Fatalf("expected pong after a slow reply, got %s", msg.Type)
	}
}

func TestVoiceUnsupportedMessage(t *testing.T) {
	conn, _ := dial(t)
	read(t, conn)

	send(t, conn, "audio", map[string]any{})
	if msg := read(t, conn); msg.Type != "error" {
		t.Fatalf("expected error, got %s", msg.Type)
	}
}

func TestVoiceRequiresUser(t *testing.T) {
	svc := chatservice.NewService(fakeGenerator{}, conversation.NewManager(conversation.ExpiryPolicy{}), chatlog.NewInMemoryStore(), nil, nil)
	handler := NewWebSocketHandler(svc, voiceservice.DefaultSettings, nil, nil)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/voice/ws", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
