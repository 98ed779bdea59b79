package types

import (
	"context"
	"time"
)

// Feed represents a collection of entries from a single feed address.
type Feed struct {
	Title       string
	Description string
	Items       []FeedItem
}

// FeedItem represents a single entry in a feed.
type FeedItem struct {
	Title       string
	Link        string
	Description string
	Author      string
	Published   *time.Time
	Updated     *time.Time
	GUID        string
}

// Date returns the publication date, falling back to the update date.
// The second value is false when the entry carries neither.
func (i FeedItem) Date() (time.Time, bool) {
	if i.Published != nil {
		return *i.Published, true
	}
	if i.Updated != nil {
		return *i.Updated, true
	}
	return time.Time{}, false
}

// FeedFetcher is an interface for fetching feeds.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (Feed, error)
}
