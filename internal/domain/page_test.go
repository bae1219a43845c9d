package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestValidate(t *testing.T) {
	assert.NoError(t, PageRequest{Page: 1, PerPage: DefaultPerPage}.Validate())
	assert.ErrorIs(t, PageRequest{Page: 0, PerPage: 10}.Validate(), ErrBadRequest)
	assert.ErrorIs(t, PageRequest{Page: 1, PerPage: 0}.Validate(), ErrBadRequest)
	assert.ErrorIs(t, PageRequest{Page: 1, PerPage: MaxPerPage + 1}.Validate(), ErrBadRequest)
}

func TestPaginate(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7}

	p := Paginate(all, PageRequest{Page: 2, PerPage: 3})
	assert.Equal(t, []int{4, 5, 6}, p.Items)
	assert.Equal(t, 7, p.Total)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 2, p.CurrentPage)

	last := Paginate(all, PageRequest{Page: 3, PerPage: 3})
	assert.Equal(t, []int{7}, last.Items)

	past := Paginate(all, PageRequest{Page: 9, PerPage: 3})
	assert.Empty(t, past.Items)
	assert.NotNil(t, past.Items)
	assert.Equal(t, 7, past.Total)
}

func TestNewPage_EmptyResult(t *testing.T) {
	p := NewPage[string](nil, 0, PageRequest{Page: 1, PerPage: 10})
	assert.NotNil(t, p.Items)
	assert.Equal(t, 0, p.Pages)
}
