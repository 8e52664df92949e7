package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
	"github.com/dvloznov/statement-insights/internal/domain"
)

// RegisterRequest is the body of POST /api/users.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// UsersHandler registers statement owners.
type UsersHandler struct {
	users UserService
	log   zerolog.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(users UserService, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{users: users, log: log}
}

// Register handles POST /api/users
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if msg, ok := decodeJSON(r, &req); !ok {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.Password)
	if errors.Is(err, domain.ErrEmailTaken) {
		middleware.WriteError(w, http.StatusConflict, "Email already existed")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to register user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	h.log.Info().Str("owner_id", user.ID).Msg("User registered")
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"user_id": user.ID})
}
