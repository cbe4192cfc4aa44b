package embed

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/sefs/internal/checksum"
)

// Cached memoises a Provider by content hash with LRU eviction. Unchanged
// files are not re-embedded on every cycle.
type Cached struct {
	next  Provider
	cache *lru.Cache[string, []float32]
}

// NewCached wraps next with an LRU cache holding up to size vectors.
func NewCached(next Provider, size int) *Cached {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		cache, _ = lru.New[string, []float32](1024)
	}
	return &Cached{next: next, cache: cache}
}

func (c *Cached) Name() string   { return c.next.Name() }
func (c *Cached) Dimension() int { return c.next.Dimension() }

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }

// Embed returns a copy of the cached vector, or computes and stores it.
// Nil results are not cached.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := checksum.SumString(text)
	if v, ok := c.cache.Get(key); ok {
		return append([]float32(nil), v...), nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil || v == nil {
		return v, err
	}
	c.cache.Add(key, append([]float32(nil), v...))
	return v, nil
}
