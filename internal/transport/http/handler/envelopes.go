package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lostfound-api/internal/domain"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// pageBody is the list envelope: the resource key carries the items.
func pageBody[T any](key string, p domain.Page[T]) map[string]any {
	return map[string]any{
		key:            p.Items,
		"total":        p.Total,
		"pages":        p.Pages,
		"current_page": p.CurrentPage,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// mutated writes the mutation envelope {"message": msg, key: v}.
func mutated(w http.ResponseWriter, status int, msg, key string, v any) {
	body := map[string]any{"message": msg}
	if key != "" {
		body[key] = v
	}
	writeJSON(w, status, body)
}

// httpError maps domain sentinels to status codes. Unexpected errors are
// logged and hidden from the client.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTransient):
		slog.Warn("store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		slog.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// parsePage reads page and per_page. Missing values take the defaults;
// range checks happen in the services.
func parsePage(r *http.Request) (domain.PageRequest, error) {
	p := domain.PageRequest{Page: 1, PerPage: domain.DefaultPerPage}
	q := r.URL.Query()
	for key, dst := range map[string]*int{"page": &p.Page, "per_page": &p.PerPage} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("%s must be an integer: %w", key, domain.ErrBadRequest)
		}
		*dst = n
	}
	return p, nil
}

// parseBool reads an optional true/false query parameter.
func parseBool(r *http.Request, key string) (*bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false: %w", key, domain.ErrBadRequest)
	}
	return &b, nil
}
