// Package shortener converts long article links into short ones.
//
// The concrete shortener is injected into the record builder, so everything
// above this package can run without network access.
package shortener

import (
	"context"
	"errors"
)

// ErrEmptyURL is returned when there is nothing to shorten.
var ErrEmptyURL = errors.New("empty url")

// Shortener converts a long URL into a short one.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
	// Name identifies the provider, e.g. "tinyurl"
	Name() string
}

// Noop returns links unchanged. It is used when shortening is disabled.
type Noop struct{}

func (Noop) Shorten(_ context.Context, longURL string) (string, error) {
	return longURL, nil
}

func (Noop) Name() string {
	return "noop"
}

// Func adapts a plain function to the Shortener interface.
type Func func(ctx context.Context, longURL string) (string, error)

func (f Func) Shorten(ctx context.Context, longURL string) (string, error) {
	return f(ctx, longURL)
}

func (Func) Name() string {
	return "func"
}
