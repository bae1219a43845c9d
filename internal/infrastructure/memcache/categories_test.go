package memcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCategories_SetGetInvalidate(t *testing.T) {
	c := NewCategories(time.Minute)

	_, ok := c.Get()
	assert.False(t, ok)

	c.Set([]string{"Bags", "Keys"})
	got, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, []string{"Bags", "Keys"}, got)

	c.Invalidate()
	_, ok = c.Get()
	assert.False(t, ok)
}

func TestCategories_Expire(t *testing.T) {
	c := NewCategories(10 * time.Millisecond)
	c.Set([]string{"Bags"})
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get()
	assert.False(t, ok)
}
