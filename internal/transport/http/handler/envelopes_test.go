package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPError_StatusMapping(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("x: %w", domain.ErrBadRequest):   http.StatusBadRequest,
		fmt.Errorf("x: %w", domain.ErrUnauthorized): http.StatusUnauthorized,
		fmt.Errorf("x: %w", domain.ErrForbidden):    http.StatusForbidden,
		fmt.Errorf("x: %w", domain.ErrNotFound):     http.StatusNotFound,
		fmt.Errorf("x: %w", domain.ErrConflict):     http.StatusConflict,
		fmt.Errorf("x: %w", domain.ErrTransient):    http.StatusServiceUnavailable,
		errors.New("disk on fire"):                  http.StatusInternalServerError,
	}
	for err, want := range cases {
		rr := httptest.NewRecorder()
		httpError(rr, err)
		assert.Equal(t, want, rr.Code, err.Error())
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	}
}

func TestHTTPError_HidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	httpError(rr, errors.New("pq: password authentication failed"))
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}

func TestParsePage(t *testing.T) {
	p, err := parsePage(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, domain.PageRequest{Page: 1, PerPage: domain.DefaultPerPage}, p)

	p, err = parsePage(httptest.NewRequest(http.MethodGet, "/?page=3&per_page=25", nil))
	require.NoError(t, err)
	assert.Equal(t, domain.PageRequest{Page: 3, PerPage: 25}, p)

	_, err = parsePage(httptest.NewRequest(http.MethodGet, "/?page=two", nil))
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestPageBody(t *testing.T) {
	body := pageBody("items", domain.NewPage([]int{1, 2}, 12, domain.PageRequest{Page: 2, PerPage: 2}))
	assert.Equal(t, []int{1, 2}, body["items"])
	assert.Equal(t, 12, body["total"])
	assert.Equal(t, 6, body["pages"])
	assert.Equal(t, 2, body["current_page"])
}
