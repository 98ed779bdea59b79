// Package newspaper fetches the feeds of each configured newspaper and turns
// today's entries into records.
package newspaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scipunch/pressbrief/fetcher/types"
	"github.com/scipunch/pressbrief/filter"
	"github.com/scipunch/pressbrief/metrics"
	"github.com/scipunch/pressbrief/news"
)

const DefaultWorkers = 8

// Press holds the collaborators shared by every newspaper of a run.
type Press struct {
	Fetcher types.FeedFetcher
	Builder *news.Builder
	Filters *filter.Pipeline // optional named filters
	Metrics *metrics.Run     // optional
	Logger  *slog.Logger
	// Workers bounds the number of feeds fetched at once
	Workers int
	Now     func() time.Time
}

// Newspaper is a named group of feed addresses rendered as one section.
type Newspaper struct {
	Name        string
	Feeds       []string
	Limit       int // max records per feed address
	FilterNames []string

	press *Press
}

// Edition is what a newspaper produced during a run.
type Edition struct {
	Name      string
	FeedCount int
	Records   []news.Record
}

// New creates a newspaper served by press
func (p *Press) New(name string, feeds []string, limit int, filterNames ...string) *Newspaper {
	return &Newspaper{
		Name:        name,
		Feeds:       feeds,
		Limit:       limit,
		FilterNames: filterNames,
		press:       p,
	}
}

// Produce fetches the newspaper's feeds and returns today's records in feed
// order. Each call fetches live data again.
func (n *Newspaper) Produce(ctx context.Context) ([]news.Record, error) {
	editions, err := n.press.Collect(ctx, []*Newspaper{n})
	if err != nil {
		return nil, err
	}
	return editions[0].Records, nil
}

type feedJob struct {
	paper int
	feed  int
}

// Collect fetches every feed of every newspaper through one bounded worker
// pool. Editions come back in the order of papers, records in feed order.
// A feed that fails to fetch contributes no records; only cancellation of
// ctx is returned as an error.
func (p *Press) Collect(ctx context.Context, papers []*Newspaper) ([]Edition, error) {
	logger := p.logger()
	day := filter.Today(p.now())

	results := make([][][]news.Record, len(papers))
	var jobs []feedJob
	for i, paper := range papers {
		results[i] = make([][]news.Record, len(paper.Feeds))
		for j := range paper.Feeds {
			jobs = append(jobs, feedJob{paper: i, feed: j})
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers())

	for _, job := range jobs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			paper := papers[job.paper]
			results[job.paper][job.feed] = p.feedRecords(egCtx, paper, paper.Feeds[job.feed], day)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("collecting news interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collecting news interrupted: %w", err)
	}

	editions := make([]Edition, len(papers))
	for i, paper := range papers {
		var records []news.Record
		for _, feedRecords := range results[i] {
			records = append(records, feedRecords...)
		}
		editions[i] = Edition{
			Name:      paper.Name,
			FeedCount: len(paper.Feeds),
			Records:   records,
		}
		p.Metrics.RecordsBuilt(paper.Name, len(records))
		logger.Info("news downloaded", "newspaper", paper.Name, "feeds", len(paper.Feeds), "records", len(records))
	}

	return editions, nil
}

// feedRecords builds at most paper.Limit records out of today's entries of a
// single feed address
func (p *Press) feedRecords(ctx context.Context, paper *Newspaper, feedURL string, day filter.Day) []news.Record {
	logger := p.logger()
	if paper.Limit <= 0 {
		return nil
	}

	feed, err := p.Fetcher.Fetch(ctx, feedURL)
	if err != nil {
		p.Metrics.FeedFetched(paper.Name, false)
		logger.Warn("failed to fetch feed, skipping", "newspaper", paper.Name, "feed", feedURL, "error", err)
		return nil
	}
	p.Metrics.FeedFetched(paper.Name, true)

	records := make([]news.Record, 0, min(paper.Limit, len(feed.Items)))
	for _, item := range feed.Items {
		if len(records) >= paper.Limit {
			break
		}
		if !day.Published(item) {
			p.Metrics.EntrySkipped(paper.Name, "not_today")
			continue
		}
		if p.Filters != nil {
			if ok, reason := p.Filters.ShouldInclude(item, paper.FilterNames); !ok {
				p.Metrics.EntrySkipped(paper.Name, "filtered")
				logger.Debug("entry filtered out", "title", item.Title, "reason", reason, "url", item.Link)
				continue
			}
		}
		records = append(records, p.Builder.Build(ctx, item))
	}

	logger.Debug("feed processed", "newspaper", paper.Name, "feed", feedURL, "entries", len(feed.Items), "records", len(records))
	return records
}

func (p *Press) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Press) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Press) workers() int {
	if p.Workers <= 0 {
		return DefaultWorkers
	}
	return p.Workers
}
