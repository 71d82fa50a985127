package talk

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hopeflow/backend/internal/handler/httpx"
	chatservice "github.com/hopeflow/backend/internal/service/chat"
	"github.com/hopeflow/backend/pkg/utils"
)

// Handler 对话接口的HTTP处理器
type Handler struct {
	chatSvc *chatservice.Service
	logger  *zap.Logger
}

// New 创建对话处理器
func New(chatSvc *chatservice.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, logger: logger.Named("talk")}
}

// RegisterRoutes 注册对话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/talk", func(r chi.Router) {
		r.Post("/messages", h.handleSendMessage)
		r.Get("/stream", h.handleStream)
		r.Post("/reset", h.handleReset)
		r.Post("/activity", h.handleActivity)
		r.Get("/state", h.handleState)
	})
}

type sendMessageRequest struct {
	Message string `json:"message"`
	IsVoice bool   `json:"isVoice"`
}

// handleSendMessage 处理一次完整的对话
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.RequireUser(w, r)
	if !ok {
		return
	}

	var payload sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.chatSvc.Talk(r.Context(), user.ID, payload.Message, payload.IsVoice)
	if err != nil {
		h.logger.Error("talk failed", zap.String("user_id", user.ID), zap.Error(err))
		httpx.RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

// handleStream 通过SSE返回一次对话的进度
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.RequireUser(w, r)
	if !ok {
		return
	}

	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	if err := utils.SendSSEEvent(w, flusher, "start", map[string]any{"message": message}); err != nil {
		return
	}

	tone, support := h.chatSvc.Classify(message)
	if err := utils.SendSSEEvent(w, flusher, "tone", map[string]any{"tone": tone, "supportType": support}); err != nil {
		return
	}

	reply, err := h.chatSvc.Talk(r.Context(), user.ID, message, false)
	if err != nil {
		h.logger.Error("stream talk failed", zap.String("user_id", user.ID), zap.Error(err))
		_ = utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": "failed to generate response"})
		return
	}

	if err := utils.SendSSEEvent(w, flusher, "message", map[string]string{"content": reply.Response}); err != nil {
		return
	}
	_ = utils.SendSSEEvent(w, flusher, "end", map[string]any{
		"finished": true,
		"fallback": reply.Fallback,
		"saved":    reply.Saved,
	})
}

// handleReset 清空对话上下文
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.RequireUser(w, r)
	if !ok {
		return
	}

	h.chatSvc.Reset(user.ID)
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.State(user.ID))
}

// handleActivity 记录用户活跃，延长过期窗口
func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.RequireUser(w, r)
	if !ok {
		return
	}

	h.chatSvc.Activity(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// handleState 返回当前对话快照
func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.RequireUser(w, r)
	if !ok {
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.chatSvc.State(user.ID))
}
