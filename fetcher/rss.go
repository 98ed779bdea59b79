package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/scipunch/pressbrief/fetcher/types"
)

const (
	DefaultTimeout = 30 * time.Second
	userAgent      = "pressbrief/1.0"
)

// RSSFetcher fetches RSS and Atom feeds using gofeed
type RSSFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewRSSFetcher creates a new RSS fetcher. Every fetch is bounded by timeout;
// a zero timeout falls back to DefaultTimeout.
func NewRSSFetcher(client *http.Client, timeout time.Duration) *RSSFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RSSFetcher{
		client:  client,
		timeout: timeout,
	}
}

// Fetch retrieves and parses the feed at the given URL
func (f *RSSFetcher) Fetch(ctx context.Context, url string) (types.Feed, error) {
	var feed types.Feed

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = f.client
	parser.UserAgent = userAgent

	gofeedFeed, err := parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return feed, fmt.Errorf("failed to parse feed at '%s' with %w", url, err)
	}

	return Convert(gofeedFeed), nil
}

// Convert maps a parsed gofeed feed onto our own Feed type
func Convert(gofeedFeed *gofeed.Feed) types.Feed {
	feed := types.Feed{
		Title:       gofeedFeed.Title,
		Description: gofeedFeed.Description,
		Items:       make([]types.FeedItem, 0, len(gofeedFeed.Items)),
	}

	for _, item := range gofeedFeed.Items {
		if item == nil {
			continue
		}

		// Content is only a fallback, it usually carries the whole article
		description := item.Description
		if strings.TrimSpace(description) == "" {
			description = item.Content
		}

		feed.Items = append(feed.Items, types.FeedItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: description,
			Author:      authorName(item),
			Published:   item.PublishedParsed,
			Updated:     item.UpdatedParsed,
			GUID:        item.GUID,
		})
	}

	return feed
}

func authorName(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}
