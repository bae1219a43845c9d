package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/user"
	"github.com/lostfound-api/internal/domain"
)

// UserHandler handles user profiles and per-user listings.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		httpError(w, err)
		return
	}
	p, err := h.svc.List(r.Context(), actorOf(r), page)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageBody("users", p))
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "User updated successfully", "user", u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "User deleted successfully", "", nil)
}

// MyItems lists items the caller found or claimed.
func (h *UserHandler) MyItems(w http.ResponseWriter, r *http.Request) {
	h.items(w, r, actorOf(r).UserID, user.RelationInvolving)
}

func (h *UserHandler) MyClaims(w http.ResponseWriter, r *http.Request) {
	h.claims(w, r, actorOf(r).UserID)
}

func (h *UserHandler) FoundItems(w http.ResponseWriter, r *http.Request) {
	h.items(w, r, chi.URLParam(r, "id"), user.RelationFound)
}

func (h *UserHandler) ClaimedItems(w http.ResponseWriter, r *http.Request) {
	h.items(w, r, chi.URLParam(r, "id"), user.RelationClaimed)
}

func (h *UserHandler) Claims(w http.ResponseWriter, r *http.Request) {
	h.claims(w, r, chi.URLParam(r, "id"))
}

func (h *UserHandler) items(w http.ResponseWriter, r *http.Request, userID string, rel user.Relation) {
	page, err := parsePage(r)
	if err != nil {
		httpError(w, err)
		return
	}
	p, err := h.svc.Items(r.Context(), actorOf(r), userID, rel, page)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageBody("items", p))
}

func (h *UserHandler) claims(w http.ResponseWriter, r *http.Request, userID string) {
	page, err := parsePage(r)
	if err != nil {
		httpError(w, err)
		return
	}
	p, err := h.svc.Claims(r.Context(), actorOf(r), userID, page)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageBody("claims", p))
}
