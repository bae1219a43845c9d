package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/item"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/imaging"
)

// ItemHandler handles lost and found items. Create and update accept
// multipart forms with an optional "image" file, urlencoded forms or JSON.
type ItemHandler struct {
	svc item.Service
}

func NewItemHandler(svc item.Service) *ItemHandler { return &ItemHandler{svc: svc} }

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		httpError(w, err)
		return
	}
	q := r.URL.Query()
	p, err := h.svc.List(r.Context(), domain.ItemFilter{
		Category:    q.Get("category"),
		Status:      domain.ItemStatus(q.Get("status")),
		Search:      q.Get("search"),
		PageRequest: page,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageBody("items", p))
}

func (h *ItemHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cats})
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	it, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, img, err := readItemForm(w, r)
	if err != nil {
		httpError(w, err)
		return
	}
	req := domain.CreateItemRequest{
		Category:          f.get("category"),
		DropOffLocationID: f.get("drop_off_location_id"),
	}
	if v := f.get("name"); v != nil {
		req.Name = strings.TrimSpace(*v)
	}
	if v := f.get("description"); v != nil {
		req.Description = *v
	}
	if v := f.get("status"); v != nil {
		req.Status = domain.ItemStatus(*v)
	}
	if req.LostDate, err = f.date("lost_date"); err != nil {
		httpError(w, err)
		return
	}
	if req.FoundDate, err = f.date("found_date"); err != nil {
		httpError(w, err)
		return
	}
	it, err := h.svc.Create(r.Context(), actorOf(r), req, img)
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusCreated, "Item created successfully", "item", it)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	f, img, err := readItemForm(w, r)
	if err != nil {
		httpError(w, err)
		return
	}
	req := domain.UpdateItemRequest{
		Name:              f.get("name"),
		Description:       f.get("description"),
		Category:          f.get("category"),
		DropOffLocationID: f.get("drop_off_location_id"),
		ClaimedByUserID:   f.get("claimed_by_user_id"),
	}
	if v := f.get("status"); v != nil {
		s := domain.ItemStatus(*v)
		req.Status = &s
	}
	if req.LostDate, err = f.date("lost_date"); err != nil {
		httpError(w, err)
		return
	}
	if req.FoundDate, err = f.date("found_date"); err != nil {
		httpError(w, err)
		return
	}
	it, err := h.svc.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), req, img)
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "Item updated successfully", "item", it)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "Item deleted successfully", "", nil)
}

// itemForm holds the fields present in the request. A JSON null or an empty
// form value is kept as "" so updates can clear optional fields.
type itemForm map[string]*string

func (f itemForm) get(key string) *string {
	v, ok := f[key]
	if !ok {
		return nil
	}
	if v == nil {
		empty := ""
		return &empty
	}
	return v
}

// date accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func (f itemForm) date(key string) (*time.Time, error) {
	v := f.get(key)
	if v == nil || *v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, *v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s must be a date: %w", key, domain.ErrBadRequest)
}

func readItemForm(w http.ResponseWriter, r *http.Request) (itemForm, *domain.Image, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+maxJSONBody)
		if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
			return nil, nil, fmt.Errorf("invalid multipart form: %w", domain.ErrBadRequest)
		}
		img, err := formImage(r)
		if err != nil {
			return nil, nil, err
		}
		return formFields(r), img, nil
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			return nil, nil, fmt.Errorf("invalid form: %w", domain.ErrBadRequest)
		}
		return formFields(r), nil, nil
	default:
		f := itemForm{}
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			return nil, nil, fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
		}
		return f, nil, nil
	}
}

func formFields(r *http.Request) itemForm {
	f := itemForm{}
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			v := vs[0]
			f[k] = &v
		}
	}
	return f
}

func formImage(r *http.Request) (*domain.Image, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid image upload: %w", domain.ErrBadRequest)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", domain.ErrBadRequest)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &domain.Image{Data: data, Filename: header.Filename}, nil
}
