package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/claim"
	"github.com/lostfound-api/internal/domain"
)

// ClaimHandler handles ownership claims.
type ClaimHandler struct {
	svc claim.Service
}

func NewClaimHandler(svc claim.Service) *ClaimHandler { return &ClaimHandler{svc: svc} }

// List returns claims; non-admins only ever see their own.
func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		httpError(w, err)
		return
	}
	q := r.URL.Query()
	p, err := h.svc.List(r.Context(), actorOf(r), domain.ClaimFilter{
		Status:      domain.ClaimStatus(q.Get("status")),
		ItemID:      q.Get("item_id"),
		UserID:      q.Get("user_id"),
		PageRequest: page,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pageBody("claims", p))
}

func (h *ClaimHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ClaimHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitClaimRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.Submit(r.Context(), actorOf(r), req)
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusCreated, "Claim submitted successfully", "claim", c)
}

func (h *ClaimHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := updateClaimRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "Claim updated successfully", "claim", c)
}

func (h *ClaimHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	mutated(w, http.StatusOK, "Claim deleted successfully", "", nil)
}

// updateClaimRequest keeps track of keys the request type does not know, so
// the service can refuse them instead of silently dropping them.
func updateClaimRequest(body map[string]json.RawMessage) (domain.UpdateClaimRequest, error) {
	var req domain.UpdateClaimRequest
	for key, raw := range body {
		var err error
		switch key {
		case "verification_status":
			err = json.Unmarshal(raw, &req.VerificationStatus)
		case "proof_description":
			err = json.Unmarshal(raw, &req.ProofDescription)
		case "admin_notes":
			err = json.Unmarshal(raw, &req.AdminNotes)
		default:
			req.Unknown = append(req.Unknown, key)
		}
		if err != nil {
			return req, fmt.Errorf("%s: %w", key, err)
		}
	}
	sort.Strings(req.Unknown)
	return req, nil
}
