package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hopeflow/backend/internal/handler/httpx"
	"github.com/hopeflow/backend/internal/observability"
	chatservice "github.com/hopeflow/backend/internal/service/chat"
	voiceservice "github.com/hopeflow/backend/internal/service/voice"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 语音对话的WebSocket处理器
type WebSocketHandler struct {
	chatSvc     *chatservice.Service
	settings    voiceservice.Settings
	logger      *zap.Logger
	metrics     *observability.Metrics
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, settings voiceservice.Settings, logger *zap.Logger, metrics *observability.Metrics) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		chatSvc:     chatSvc,
		settings:    settings,
		logger:      logger.Named("voice"),
		metrics:     metrics,
		readTimeout: readTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/voice/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type transcriptMessage struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

type speechMessage struct {
	UtteranceID string             `json:"utteranceId"`
	State       voiceservice.State `json:"state"`
	Error       string             `json:"error,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connection serialises writes; gorilla connections allow one concurrent writer.
type connection struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *connection) send(msgType string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(outgoingMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *connection) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

type session struct {
	userID  string
	conn    *connection
	gate    *voiceservice.TranscriptGate
	speaker *voiceservice.Speaker
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.RequireUser(w, r)
	if !ok {
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	h.metrics.VoiceConnected()
	defer h.metrics.VoiceDisconnected()

	s := &session{
		userID:  user.ID,
		conn:    &connection{conn: ws},
		gate:    &voiceservice.TranscriptGate{},
		speaker: voiceservice.NewSpeaker(h.settings, 16),
	}
	defer s.speaker.Close()

	h.logger.Info("voice connection opened", zap.String("user_id", user.ID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	go h.pingLoop(ctx, s.conn)

	state := h.chatSvc.State(user.ID)
	_ = s.conn.send("connected", map[string]any{
		"greeting": state.Greeting,
		"active":   state.Active,
		"settings": h.settings,
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("voice read error", zap.String("user_id", user.ID), zap.Error(err))
			}
			h.logger.Info("voice connection closed", zap.String("user_id", user.ID))
			return
		}

		h.handleMessage(ctx, s, &msg)
		// a slow reply must not count against the client's idle window
		_ = ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, s *session, msg *inboundMessage) {
	switch msg.Type {
	case "transcript":
		h.handleTranscript(ctx, s, msg.Data)
	case "speech":
		h.handleSpeech(s, msg.Data)
	case "reset":
		h.chatSvc.Reset(s.userID)
		s.gate.Clear()
		s.speaker.Cancel()
		h.flushEvents(s)
		_ = s.conn.send("reset", map[string]string{"greeting": h.chatSvc.State(s.userID).Greeting})
	case "ping":
		_ = s.conn.send("pong", nil)
	default:
		h.sendError(s, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleTranscript(ctx context.Context, s *session, raw json.RawMessage) {
	var payload transcriptMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.sendError(s, "invalid transcript payload")
		return
	}

	// interim results count as activity for the expiry window
	h.chatSvc.Activity(s.userID)

	text, ok := s.gate.Accept(payload.Text, payload.IsFinal)
	if !ok {
		return
	}

	// the user is talking; stop any reply still being spoken
	s.speaker.Cancel()
	h.flushEvents(s)

	reply, err := h.chatSvc.Talk(ctx, s.userID, text, true)
	if err != nil {
		h.logger.Error("voice talk failed", zap.String("user_id", s.userID), zap.Error(err))
		h.sendError(s, "failed to generate response")
		return
	}

	_ = s.conn.send("reply", map[string]any{
		"transcript":  text,
		"response":    reply.Response,
		"tone":        reply.Tone,
		"supportType": reply.SupportType,
		"fallback":    reply.Fallback,
	})

	utterance := s.speaker.Speak(reply.Response)
	h.flushEvents(s)
	_ = s.conn.send("speak", utterance)
}

func (h *WebSocketHandler) handleSpeech(s *session, raw json.RawMessage) {
	var payload speechMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.sendError(s, "invalid speech payload")
		return
	}

	switch payload.State {
	case voiceservice.StateEnd:
		s.speaker.Finish(payload.UtteranceID)
	case voiceservice.StateError:
		if s.speaker.Fail(payload.UtteranceID, payload.Error) {
			h.logger.Warn("speech synthesis failed", zap.String("user_id", s.userID), zap.String("error", payload.Error))
		}
	default:
		h.sendError(s, "unsupported speech state: "+string(payload.State))
		return
	}
	h.flushEvents(s)
}

// flushEvents forwards pending speaker events in order.
func (h *WebSocketHandler) flushEvents(s *session) {
	for {
		select {
		case ev := <-s.speaker.Events():
			_ = s.conn.send("speech", ev)
		default:
			return
		}
	}
}

func (h *WebSocketHandler) sendError(s *session, message string) {
	if err := s.conn.send("error", map[string]string{"message": message}); err != nil {
		h.logger.Warn("write error failed", zap.Error(err))
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
