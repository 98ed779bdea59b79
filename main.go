package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scipunch/pressbrief/brief"
	"github.com/scipunch/pressbrief/cache"
	"github.com/scipunch/pressbrief/config"
	"github.com/scipunch/pressbrief/exporter"
	"github.com/scipunch/pressbrief/fetcher"
	"github.com/scipunch/pressbrief/filter"
	"github.com/scipunch/pressbrief/metrics"
	"github.com/scipunch/pressbrief/news"
	"github.com/scipunch/pressbrief/newspaper"
	"github.com/scipunch/pressbrief/qr"
	"github.com/scipunch/pressbrief/shortener"
	"github.com/scipunch/pressbrief/storage"
)

const (
	linkCacheTTL    = 30 * 24 * time.Hour
	shortenTimeout  = 10 * time.Second
	fetchHTTPClient = 60 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.LookupEnv)
	stop()
	if err != nil {
		log.Fatalf("press brief failed with %s", err)
	}
}

// run returns instead of exiting so deferred cleanup, like closing the link
// cache, always happens.
func run(ctx context.Context, args []string, lookupEnv func(string) (string, bool)) error {
	flags := flag.NewFlagSet("pressbrief", flag.ContinueOnError)
	var cfgPath string
	var cleanCache, debug bool
	flags.StringVar(&cfgPath, "config", config.DefaultPath(), "path to a TOML or YAML config")
	flags.BoolVar(&cleanCache, "clean", false, "remove all cached short links")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	if err := flags.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if v, _ := lookupEnv("DEBUG"); debug || v != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Read config and create if default is missing
	conf, err := config.Read(cfgPath)
	if errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath() {
		conf = config.Default()
		if err := config.Write(cfgPath, conf); err != nil {
			return fmt.Errorf("failed to write default config with %w", err)
		}
		logger.Info("default config written", "path", cfgPath)
	} else if err != nil {
		return fmt.Errorf("failed to read config with %w", err)
	}

	conf.ApplyEnv(config.EnvVarProvider{LookupEnv: lookupEnv}, logger)
	conf.Normalize(logger)
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config at '%s': %w", cfgPath, err)
	}

	filters, err := filter.NewPipeline(conf.Filters, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize filters: %w", err)
	}

	var short shortener.Shortener = shortener.Noop{}
	if conf.ShortenEnabled() {
		short = shortener.WithResilience(
			shortener.NewTinyURL(&http.Client{Timeout: shortenTimeout}),
			shortener.DefaultResilienceConfig(),
			logger,
		)

		if conf.CachePath != "" {
			linkCache, err := cache.NewCache(conf.CachePath, logger)
			if err != nil {
				return fmt.Errorf("failed to open link cache with %w", err)
			}
			defer linkCache.Close()

			if cleanCache {
				if err := linkCache.Clear(); err != nil {
					return fmt.Errorf("failed to clean link cache with %w", err)
				}
				logger.Info("link cache cleared")
			} else if n, err := linkCache.Prune(ctx, time.Now().Add(-linkCacheTTL)); err != nil {
				logger.Warn("failed to prune link cache", "error", err)
			} else if n > 0 {
				logger.Debug("link cache pruned", "entries", n)
			}

			if stats, err := linkCache.Stats(); err == nil {
				logger.Info("link cache", "entries", stats.LinkEntries, "oldest", stats.OldestEntry)
			}
			short = shortener.WithCache(short, linkCache, logger)
		}
	}

	var encoder exporter.ImageEncoder
	if conf.LinkMode == config.LinkQRCode {
		encoder = qr.NewEncoder()
	}

	metricsRun := metrics.NewRun()
	now := func() time.Time { return time.Now().UTC() }

	runner := &brief.Runner{
		Config: conf,
		Press: &newspaper.Press{
			Fetcher: fetcher.NewRSSFetcher(&http.Client{Timeout: fetchHTTPClient}, conf.FetchTimeout.Std()),
			Builder: news.NewBuilder(short, logger),
			Filters: filters,
			Metrics: metricsRun,
			Logger:  logger,
			Workers: conf.Workers,
			Now:     now,
		},
		Renderer:     exporter.NewHTMLRenderer(conf.LinkMode, encoder, metricsRun, logger),
		Materializer: exporter.NewPDFMaterializer(logger),
		Sinks:        storage.FromConfig(conf, logger),
		Metrics:      metricsRun,
		Logger:       logger,
		Now:          now,
	}

	return runner.Run(ctx)
}
