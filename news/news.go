// Package news builds normalized display records out of raw feed entries.
package news

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/scipunch/pressbrief/fetcher/types"
	"github.com/scipunch/pressbrief/normalize"
	"github.com/scipunch/pressbrief/shortener"
)

const (
	// DateLayout renders as e.g. "Monday, January  2, 15:04 UTC".
	DateLayout    = "Monday, January _2, 15:04 UTC"
	UnknownAuthor = "N/A"
)

// Record is one display-ready entry of the brief.
type Record struct {
	Title       string
	Summary     string
	URL         string
	PublishedAt string
	Author      string
}

// Builder turns feed entries into records.
type Builder struct {
	shortener shortener.Shortener
	logger    *slog.Logger
}

// NewBuilder creates a record builder. A nil shortener leaves links as they are.
func NewBuilder(s shortener.Shortener, logger *slog.Logger) *Builder {
	if s == nil {
		s = shortener.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{shortener: s, logger: logger}
}

// Build converts a feed entry into a Record. When shortening fails the
// original link is kept, the record is never dropped because of it.
func (b *Builder) Build(ctx context.Context, item types.FeedItem) Record {
	date, _ := item.Date()

	return Record{
		Title:       item.Title,
		Summary:     normalize.Summary(item.Description),
		URL:         b.shorten(ctx, item.Link),
		PublishedAt: FormatDate(date),
		Author:      author(item.Author),
	}
}

func (b *Builder) shorten(ctx context.Context, link string) string {
	short, err := b.shortener.Shorten(ctx, link)
	if err != nil {
		b.logger.Warn("failed to shorten link, keeping original",
			"url", link,
			"shortener", b.shortener.Name(),
			"error", err)
		return link
	}
	return short
}

// FormatDate renders t in UTC using DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func author(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return UnknownAuthor
	}
	return name
}
