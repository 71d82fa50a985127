// Package httpx holds helpers shared by the HTTP handlers.
package httpx

import (
	"errors"
	"net/http"

	"github.com/hopeflow/backend/internal/auth"
	chatservice "github.com/hopeflow/backend/internal/service/chat"
	"github.com/hopeflow/backend/pkg/utils"
)

// RequireUser returns the authenticated user or writes a 401.
func RequireUser(w http.ResponseWriter, r *http.Request) (auth.User, bool) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
		return auth.User{}, false
	}
	return user, true
}

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chatservice.ErrMessageRequired):
		return http.StatusBadRequest
	case errors.Is(err, chatservice.ErrUserRequired):
		return http.StatusUnauthorized
	case errors.Is(err, chatservice.ErrRecordNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondServiceError writes err with its mapped status. Internal errors are
// not echoed to the client.
func RespondServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		utils.RespondError(w, status, "internal error")
		return
	}
	utils.RespondError(w, status, err.Error())
}
