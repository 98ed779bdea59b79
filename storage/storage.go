// Package storage delivers the finished brief to its destinations.
package storage

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/scipunch/pressbrief/config"
)

// Sink is a destination for the finished PDF. Check is called for every sink
// before any feed is fetched so misconfiguration fails fast.
type Sink interface {
	Name() string
	Check(ctx context.Context) error
	Store(ctx context.Context, filename string, data []byte) error
}

const defaultHTTPTimeout = 60 * time.Second

// FromConfig builds every sink enabled in cfg, local first.
func FromConfig(cfg config.Config, logger *slog.Logger) []Sink {
	var sinks []Sink
	if cfg.Output.Directory != "" {
		sinks = append(sinks, NewLocal(cfg.Output.Directory, logger))
	}
	if cfg.Dropbox.AccessToken != "" {
		client := &http.Client{Timeout: defaultHTTPTimeout}
		sinks = append(sinks, NewDropbox(cfg.Dropbox.AccessToken, client, logger))
	}
	if cfg.Telegram.IsEnabled() {
		sinks = append(sinks, NewTelegram(cfg.Telegram, logger))
	}
	return sinks
}
