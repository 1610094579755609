package handler

import (
	"net/http"

	"github.com/mmynk/campusbuy/internal/middleware"
	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/response"
	"github.com/mmynk/campusbuy/internal/service"
)

// AuthHandler serves registration, login, token refresh and the current
// user's profile.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	session, err := h.auth.Register(r.Context(), service.RegisterCommand{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.Role(req.Role),
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, newAuthResponse(session))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, newAuthResponse(session))
}

// Refresh handles POST /auth/refresh-token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, tokenResponse{AccessToken: access})
}

// Me handles GET /users/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, newUserResponse(user))
}

func newAuthResponse(s *service.Session) authResponse {
	return authResponse{
		User:         newUserResponse(s.User),
		AccessToken:  s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
	}
}
