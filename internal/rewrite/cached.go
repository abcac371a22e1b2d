package rewrite

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unai-app/unai/internal/cache"
)

// ResultCache is the subset of the redis cache used by CachedRewriter
type ResultCache interface {
	Get(ctx context.Context, model, mode, text string) (*cache.Entry, bool)
	Store(ctx context.Context, model, mode, text string, entry *cache.Entry) error
}

// CachedRewriter serves repeated rewrites from a cache
type CachedRewriter struct {
	next   Rewriter
	cache  ResultCache
	model  string
	logger *zap.Logger
}

// NewCachedRewriter wraps next with cache lookups
func NewCachedRewriter(next Rewriter, c ResultCache, model string, logger *zap.Logger) *CachedRewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRewriter{next: next, cache: c, model: model, logger: logger}
}

// Rewrite returns a cached result when present, otherwise delegates and
// stores the result. Failed rewrites and replies that leave the text
// unchanged are never cached.
func (r *CachedRewriter) Rewrite(ctx context.Context, text string, mode Mode) (string, error) {
	if entry, ok := r.cache.Get(ctx, r.model, mode.String(), text); ok {
		r.logger.Debug("Rewrite served from cache", zap.String("mode", mode.String()))
		return entry.Rewritten, nil
	}

	rewritten, err := r.next.Rewrite(ctx, text, mode)
	if err != nil {
		return "", err
	}
	if rewritten == text {
		return rewritten, nil
	}

	entry := &cache.Entry{
		Rewritten: rewritten,
		Mode:      mode.String(),
		Model:     r.model,
		CachedAt:  time.Now(),
	}
	if err := r.cache.Store(ctx, r.model, mode.String(), text, entry); err != nil {
		r.logger.Warn("Failed to cache rewrite", zap.Error(err))
	}

	return rewritten, nil
}

// Configured reports whether the wrapped rewriter is usable
func (r *CachedRewriter) Configured() bool {
	if c, ok := r.next.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}
