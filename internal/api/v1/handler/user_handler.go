package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/middleware"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// UserHandler handles profile endpoints.
type UserHandler struct {
	profileSvc service.ProfileService
	logger     zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(profileSvc service.ProfileService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{profileSvc: profileSvc, logger: logger}
}

// RegisterRoutes mounts v1 user routes.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/users/me", authMw(http.HandlerFunc(h.getProfile)))
}

// getProfile godoc
// @Summary Return the user's profile with its current subscription tier
// @Tags users
// @Produce json
// @Success 200 {object} model.Profile
// @Failure 404 {string} string "profile not found"
// @Router /users/me [get]
func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	profile, err := h.profileSvc.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("failed to fetch profile")
		http.Error(w, "failed to fetch profile", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(profile); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
