package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/domain"
)

// NotificationHandler handles the caller's notification inbox.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List accepts an optional is_read filter.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		httpError(w, err)
		return
	}
	read, err := parseBool(r, "is_read")
	if err != nil {
		httpError(w, err)
		return
	}
	p, unread, err := h.svc.List(r.Context(), actorOf(r), read, page)
	if err != nil {
		httpError(w, err)
		return
	}
	body := pageBody("notifications", p)
	body["unread_count"] = unread
	writeJSON(w, http.StatusOK, body)
}

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Get(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.svc.Create(r.Context(), actorOf(r), req)
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusCreated, "Notification created successfully", "notification", n)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkRead(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "Notification marked as read", "notification", n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context(), actorOf(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "All notifications marked as read", "count": n})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "Notification deleted successfully", "", nil)
}
