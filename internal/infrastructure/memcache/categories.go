package memcache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const categoriesKey = "categories"

// Categories caches the distinct item category list. Item writes that touch a
// category call Invalidate.
type Categories struct {
	c *cache.Cache
}

func NewCategories(ttl time.Duration) *Categories {
	return &Categories{c: cache.New(ttl, 2*ttl)}
}

func (c *Categories) Get() ([]string, bool) {
	v, ok := c.c.Get(categoriesKey)
	if !ok {
		return nil, false
	}
	return v.([]string), true
}

func (c *Categories) Set(categories []string) {
	c.c.SetDefault(categoriesKey, categories)
}

func (c *Categories) Invalidate() {
	c.c.Delete(categoriesKey)
}
