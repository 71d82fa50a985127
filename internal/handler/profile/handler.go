package profile

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hopeflow/backend/internal/handler/httpx"
	profilemodel "github.com/hopeflow/backend/internal/model/profile"
	chatservice "github.com/hopeflow/backend/internal/service/chat"
	"github.com/hopeflow/backend/pkg/utils"
)

// Handler 用户资料的HTTP处理器
type Handler struct {
	chatSvc *chatservice.Service
}

func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.handleGet)
	r.Patch("/profile", h.handleUpdate)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.RequireUser(w, r)
	if !ok {
		return
	}

	p, err := h.chatSvc.Profile(r.Context(), user.ID, user.Email)
	if err != nil {
		httpx.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.RequireUser(w, r)
	if !ok {
		return
	}

	var update profilemodel.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if update.Email == nil && update.FullName == nil {
		utils.RespondError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if update.Email != nil && !strings.Contains(*update.Email, "@") {
		utils.RespondError(w, http.StatusBadRequest, "invalid email")
		return
	}

	p, err := h.chatSvc.UpdateProfile(r.Context(), user.ID, update)
	if err != nil {
		httpx.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
