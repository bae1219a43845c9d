package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/message"
	"github.com/lostfound-api/internal/domain"
)

// MessageHandler handles direct messages between users.
type MessageHandler struct {
	svc message.Service
}

func NewMessageHandler(svc message.Service) *MessageHandler { return &MessageHandler{svc: svc} }

func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.svc.Conversations(r.Context(), actorOf(r))
	if err != nil {
		httpError(w, err)
		return
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// Thread returns the exchange with one partner, optionally scoped to item_id,
// and marks the caller's received messages as read.
func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.Thread(r.Context(), actorOf(r), chi.URLParam(r, "userId"), r.URL.Query().Get("item_id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.Send(r.Context(), actorOf(r), req)
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusCreated, "Message sent successfully", "data", m)
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.MarkRead(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "Message marked as read", "data", m)
}

func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context(), actorOf(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": n})
}
