package embed

import (
	"context"
	"log/slog"

	"github.com/panbanda/kindred/internal/cache"
)

// Cached serves repeated texts from a vector cache.
type Cached struct {
	next   Embedder
	cache  *cache.Cache
	model  string
	logger *slog.Logger
}

// NewCached wraps next with c, scoping entries by model.
func NewCached(next Embedder, c *cache.Cache, model string, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, cache: c, model: model, logger: logger}
}

// Embed implements Embedder. Cache write failures are logged, not returned.
func (c *Cached) Embed(ctx context.Context, text string) ([]float64, error) {
	if vec, ok := c.cache.Get(c.model, text); ok {
		return vec, nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(c.model, text, vec); err != nil {
		c.logger.Warn("caching embedding", "err", err)
	}
	return vec, nil
}
