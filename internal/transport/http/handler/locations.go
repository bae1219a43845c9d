package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/location"
	"github.com/lostfound-api/internal/domain"
)

// LocationHandler handles drop-off locations.
type LocationHandler struct {
	svc location.Service
}

func NewLocationHandler(svc location.Service) *LocationHandler { return &LocationHandler{svc: svc} }

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err == nil {
		err = page.Validate()
	}
	if err != nil {
		httpError(w, err)
		return
	}
	all, err := h.svc.List(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageBody("locations", domain.Paginate(all, page)))
}

func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Nearest expects latitude and longitude query parameters.
func (h *LocationHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLng != nil {
		httpError(w, fmt.Errorf("valid latitude and longitude are required: %w", domain.ErrBadRequest))
		return
	}
	n, err := h.svc.Nearest(r.Context(), lat, lng)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.svc.Create(r.Context(), actorOf(r), req)
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusCreated, "Location created successfully", "location", l)
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateLocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.svc.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "Location updated successfully", "location", l)
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "Location deleted successfully", "", nil)
}
