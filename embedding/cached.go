package embedding

import (
	"context"
	"time"

	"github.com/lumenlearn/teachsim/cache"
)

// cached fronts a provider with an LRU so repeated texts (strategy corpora,
// replayed turns) are embedded once.
type cached struct {
	inner Provider
	store cache.Cache
	ttl   time.Duration
}

// WithCache wraps inner with a bounded cache. A nil store builds one with
// the given capacity.
func WithCache(inner Provider, store cache.Cache, capacity int, ttl time.Duration) Provider {
	if store == nil {
		store = cache.NewLRU(capacity, ttl)
	}
	return &cached{inner: inner, store: store, ttl: ttl}
}

func (c *cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.store.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		// Errors are never cached: the provider may recover next turn.
		return nil, err
	}
	c.store.Set(text, vec, c.ttl)
	return vec, nil
}

func (c *cached) Dimensions() int { return c.inner.Dimensions() }
