// Package brief runs one press brief end to end: sink checks, news
// collection, rendering, PDF printing and delivery.
package brief

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/scipunch/pressbrief/config"
	"github.com/scipunch/pressbrief/exporter"
	"github.com/scipunch/pressbrief/metrics"
	"github.com/scipunch/pressbrief/newspaper"
	"github.com/scipunch/pressbrief/storage"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05 UTC"
)

type Renderer interface {
	Render(doc exporter.Document) (string, error)
}

type Materializer interface {
	Materialize(ctx context.Context, markup, stylesheet string) ([]byte, error)
}

// Runner wires the collaborators of a run together
type Runner struct {
	Config       config.Config
	Press        *newspaper.Press
	Renderer     Renderer
	Materializer Materializer
	Sinks        []storage.Sink
	Metrics      *metrics.Run // optional
	Logger       *slog.Logger
	Now          func() time.Time
}

func Title(now time.Time) string {
	return fmt.Sprintf("Daily Press Brief (%s)", now.UTC().Format(dateLayout))
}

func Subtitle(limitPerFeed int, now time.Time) string {
	return fmt.Sprintf("%d news/RSS feeds, %s", limitPerFeed, now.UTC().Format(timeLayout))
}

func Filename(now time.Time) string {
	return fmt.Sprintf("pressbrief-%s.pdf", now.UTC().Format(dateLayout))
}

// Run produces today's brief and hands it to every sink. Nothing is fetched
// unless the configuration is valid and every sink passed its check.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.logger()
	defer r.writeMetrics()

	if err := r.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if len(r.Sinks) == 0 {
		return config.ErrNoSink
	}

	start := time.Now()
	if err := r.checkSinks(ctx); err != nil {
		return err
	}
	r.Metrics.Stage("check", time.Since(start))
	logger.Info("parameters loaded", "sinks", len(r.Sinks), "link_mode", r.Config.LinkMode)

	now := r.now().UTC()

	logger.Info("extracting news")
	start = time.Now()
	papers := r.newspapers()
	editions, err := r.Press.Collect(ctx, papers)
	if err != nil {
		return err
	}
	r.Metrics.Stage("collect", time.Since(start))

	logger.Info("exporting brief")
	start = time.Now()
	doc := exporter.Document{
		Title:    Title(now),
		Subtitle: Subtitle(r.Config.LimitPerFeed, now),
		Sections: make([]exporter.Section, len(editions)),
	}
	for i, edition := range editions {
		doc.Sections[i] = exporter.Section{
			Name:      edition.Name,
			FeedCount: edition.FeedCount,
			Records:   edition.Records,
		}
	}

	markup, err := r.Renderer.Render(doc)
	if err != nil {
		return fmt.Errorf("failed to render brief with %w", err)
	}
	r.Metrics.Stage("render", time.Since(start))
	r.dumpHTML(markup)

	start = time.Now()
	pdf, err := r.Materializer.Materialize(ctx, markup, exporter.PrintStylesheet)
	if err != nil {
		return fmt.Errorf("failed to generate PDF with %w", err)
	}
	r.Metrics.Stage("materialize", time.Since(start))

	start = time.Now()
	filename := Filename(now)
	if err := r.deliver(ctx, filename, pdf); err != nil {
		return err
	}
	r.Metrics.Stage("deliver", time.Since(start))
	r.Metrics.Succeeded(now)

	logger.Info("brief delivered", "filename", filename, "bytes", len(pdf))
	return nil
}

func (r *Runner) newspapers() []*newspaper.Newspaper {
	ordered := r.Config.OrderedNewspapers()
	papers := make([]*newspaper.Newspaper, len(ordered))
	for i, paper := range ordered {
		papers[i] = r.Press.New(paper.Name, paper.Feeds, r.Config.LimitPerFeed, paper.FilterNames...)
	}
	return papers
}

func (r *Runner) checkSinks(ctx context.Context) error {
	var errs []error
	for _, sink := range r.Sinks {
		if err := sink.Check(ctx); err != nil {
			r.logger().Error("sink is not usable", "sink", sink.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sink check failed with %w", errors.Join(errs...))
	}
	return nil
}

// deliver attempts every sink even if an earlier one failed
func (r *Runner) deliver(ctx context.Context, filename string, data []byte) error {
	var errs []error
	for _, sink := range r.Sinks {
		err := sink.Store(ctx, filename, data)
		r.Metrics.Delivered(sink.Name(), err)
		if err != nil {
			r.logger().Error("failed to deliver brief", "sink", sink.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("delivery failed with %w", errors.Join(errs...))
	}
	return nil
}

func (r *Runner) dumpHTML(markup string) {
	path := r.Config.DebugHTMLPath
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.logger().Warn("failed to create debug html directory", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, []byte(markup), 0o644); err != nil {
		r.logger().Warn("failed to write debug html", "path", path, "error", err)
		return
	}
	r.logger().Debug("debug html written", "path", path)
}

func (r *Runner) writeMetrics() {
	if r.Config.MetricsPath == "" || r.Metrics == nil {
		return
	}
	if err := r.Metrics.WriteTextfile(r.Config.MetricsPath); err != nil {
		r.logger().Warn("failed to write metrics", "path", r.Config.MetricsPath, "error", err)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
