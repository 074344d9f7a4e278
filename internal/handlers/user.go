package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"flickr-mirror/internal/middleware"
	"flickr-mirror/internal/repository"
	"flickr-mirror/internal/services"

	"github.com/rs/zerolog/log"
)

const sessionMaxAge = 365 * 24 * 60 * 60

// CreateUserRequest is the optional body of POST /api/v1/users
type CreateUserRequest struct {
	Name string `json:"name"`
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.CreateUser(ctx, req.Name)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		respondError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Str("name", user.Name).
		Msg("User created")

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    user.Token,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, user)
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetUser(r.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get user")
		respondError(w, "Failed to get user", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
