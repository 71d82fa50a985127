package history

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hopeflow/backend/internal/handler/httpx"
	chatservice "github.com/hopeflow/backend/internal/service/chat"
	"github.com/hopeflow/backend/pkg/utils"
)

const maxLimit = 200

// Handler 聊天记录的HTTP处理器
type Handler struct {
	chatSvc *chatservice.Service
}

func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.handleList)
	r.Delete("/history/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.RequireUser(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = min(n, maxLimit)
	}

	records, err := h.chatSvc.History(r.Context(), user.ID, limit)
	if err != nil {
		httpx.RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.RequireUser(w, r)
	if !ok {
		return
	}

	if err := h.chatSvc.DeleteHistory(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		httpx.RespondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
