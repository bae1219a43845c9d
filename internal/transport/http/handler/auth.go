package handler

import (
	"net/http"

	"github.com/lostfound-api/internal/application/auth"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/transport/http/middleware"
)

// AuthHandler handles sign-up, sign-in and the current profile.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func actorOf(r *http.Request) domain.Actor {
	a, _ := middleware.ActorFromContext(r.Context())
	return a
}

func writeAuth(w http.ResponseWriter, status int, msg string, res *auth.Result) {
	writeJSON(w, status, map[string]any{
		"message":      msg,
		"access_token": res.Token,
		"user":         res.User,
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeAuth(w, http.StatusCreated, "User registered successfully", res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeAuth(w, http.StatusOK, "Login successful", res)
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req domain.GoogleLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.GoogleLogin(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeAuth(w, http.StatusOK, "Login successful", res)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Me(r.Context(), actorOf(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), actorOf(r), req); err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "Password changed successfully", "", nil)
}
