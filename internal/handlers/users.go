package handlers

import (
	"errors"
	"net/http"

	"github.com/jamoveo/backend/internal/logging"
	"github.com/jamoveo/backend/internal/middleware"
	"github.com/jamoveo/backend/internal/models"
	"github.com/jamoveo/backend/internal/services"
)

type UsersHandler struct {
	users *services.UserService
}

func NewUsersHandler(users *services.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Register creates a player account and returns it with a token.
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// RegisterAdmin creates an admin account when the shared admin secret matches.
func (h *UsersHandler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.RegisterAdmin(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Login(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Me returns the authenticated user.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UsersHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadCredentials, "login failed")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrBadAdminSecret):
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadAdminSecret, "admin registration rejected")
		writeError(w, http.StatusForbidden, "invalid admin secret")
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "internal error", err)
	}
}
