package domain

import "fmt"

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// PageRequest is a 1-based page selection.
type PageRequest struct {
	Page    int
	PerPage int
}

func (p PageRequest) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("page must be >= 1: %w", ErrBadRequest)
	}
	if p.PerPage < 1 || p.PerPage > MaxPerPage {
		return fmt.Errorf("per_page must be between 1 and %d: %w", MaxPerPage, ErrBadRequest)
	}
	return nil
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.PerPage }

// Page is one slice of a larger ordered result set.
type Page[T any] struct {
	Items       []T
	Total       int
	Pages       int
	CurrentPage int
}

func NewPage[T any](items []T, total int, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.PerPage > 0 {
		pages = (total + req.PerPage - 1) / req.PerPage
	}
	return Page[T]{Items: items, Total: total, Pages: pages, CurrentPage: req.Page}
}

// Paginate slices an already filtered and ordered list. Stores that cannot
// push LIMIT/OFFSET down to the backend use it.
func Paginate[T any](all []T, req PageRequest) Page[T] {
	start := req.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + req.PerPage
	if end > len(all) {
		end = len(all)
	}
	return NewPage(all[start:end], len(all), req)
}
