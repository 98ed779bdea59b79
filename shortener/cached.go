package shortener

import (
	"context"
	"log/slog"
)

// LinkStore persists shortened links between runs.
type LinkStore interface {
	GetLink(ctx context.Context, longURL, provider string) (string, bool, error)
	SetLink(ctx context.Context, longURL, provider, short string) error
}

// Cached consults the store before calling the wrapped shortener.
type Cached struct {
	next   Shortener
	store  LinkStore
	logger *slog.Logger
}

// WithCache wraps next with a persistent link store
func WithCache(next Shortener, store LinkStore, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, store: store, logger: logger}
}

func (c *Cached) Name() string {
	return c.next.Name()
}

func (c *Cached) Shorten(ctx context.Context, longURL string) (string, error) {
	if short, hit, err := c.store.GetLink(ctx, longURL, c.next.Name()); err == nil && hit {
		c.logger.Debug("link cache hit", "url", longURL)
		return short, nil
	}

	short, err := c.next.Shorten(ctx, longURL)
	if err != nil {
		return "", err
	}

	if err := c.store.SetLink(ctx, longURL, c.next.Name(), short); err != nil {
		c.logger.Warn("failed to cache short link", "url", longURL, "error", err)
	}
	return short, nil
}
