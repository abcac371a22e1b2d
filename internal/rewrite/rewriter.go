package rewrite

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when no API key is available
	ErrNotConfigured = errors.New("rewrite: API key not configured")
	// ErrRewriteFailed wraps any failure of the upstream model call
	ErrRewriteFailed = errors.New("rewrite: upstream call failed")
)

// Rewriter produces a rewritten version of text at the given intensity
type Rewriter interface {
	Rewrite(ctx context.Context, text string, mode Mode) (string, error)
}

// RewriterFunc adapts a plain function to the Rewriter interface
type RewriterFunc func(ctx context.Context, text string, mode Mode) (string, error)

// Rewrite calls f
func (f RewriterFunc) Rewrite(ctx context.Context, text string, mode Mode) (string, error) {
	return f(ctx, text, mode)
}
