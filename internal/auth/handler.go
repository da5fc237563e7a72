// internal/auth/handler.go
package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"exam-quiz/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, "Invalid request body", "")
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			response.ValidationError(w, "Invalid registration", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "))
		case errors.Is(err, ErrUserExists):
			response.Conflict(w, "Username is already taken")
		default:
			response.DatabaseError(w, err)
		}
		return
	}

	response.WriteJSON(w, http.StatusCreated, user.ToProfile())
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, "Invalid request body", "")
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthorized(w, "Invalid credentials")
			return
		}
		response.DatabaseError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user.ToProfile(),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), session.ID); err != nil {
		response.InternalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.DatabaseError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    profile,
	})
}
