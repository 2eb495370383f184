package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/aic-hub/internal/model"
	"github.com/sakif/aic-hub/internal/service"
)

// UserHandler serves profiles.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleMe returns the caller's private profile.
//
// HTTP: GET /api/users/me (auth required)
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	me, err := h.users.Me(r.Context(), viewerID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// HandleUpdateMe applies a partial profile update.
//
// HTTP: PATCH /api/users/me (auth required)
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var upd model.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, h.logger, err)
		return
	}
	me, err := h.users.UpdateMe(r.Context(), viewerID(r), upd)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// HandlePublic returns a public profile.
//
// HTTP: GET /api/users/{username}
func (h *UserHandler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Public(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
