package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	tdauth "github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/uploader"

	"github.com/scipunch/pressbrief/config"
)

const (
	sessionFile = "telegram-session.json"
	pdfMIME     = "application/pdf"
)

// Telegram sends the brief as a document from a user account, to Saved
// Messages unless a peer is configured.
type Telegram struct {
	cfg    config.TelegramConfig
	logger *slog.Logger

	// Authenticator answers the login prompts, the terminal by default
	Authenticator tdauth.UserAuthenticator
}

func NewTelegram(cfg config.TelegramConfig, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		cfg:           cfg,
		logger:        logger,
		Authenticator: NewTerminalAuthenticator(cfg.Phone),
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Check logs in and resolves the destination peer
func (t *Telegram) Check(ctx context.Context) error {
	return t.run(ctx, func(ctx context.Context, client *telegram.Client) error {
		if t.cfg.Peer == "" {
			return nil
		}
		if _, err := message.NewSender(client.API()).Resolve(t.cfg.Peer).AsInputPeer(ctx); err != nil {
			return fmt.Errorf("failed to resolve telegram peer '%s' with %w", t.cfg.Peer, err)
		}
		return nil
	})
}

func (t *Telegram) Store(ctx context.Context, filename string, data []byte) error {
	return t.run(ctx, func(ctx context.Context, client *telegram.Client) error {
		api := client.API()
		up := uploader.NewUploader(api)

		t.logger.Info("uploading brief to telegram", "filename", filename, "bytes", len(data))
		file, err := up.FromBytes(ctx, filename, data)
		if err != nil {
			return fmt.Errorf("failed to upload brief with %w", err)
		}

		sender := message.NewSender(api).WithUploader(up)
		target := sender.Self()
		if t.cfg.Peer != "" {
			target = sender.Resolve(t.cfg.Peer)
		}

		doc := message.UploadedDocument(file).Filename(filename).MIME(pdfMIME)
		if _, err := target.Media(ctx, doc); err != nil {
			return fmt.Errorf("failed to send brief with %w", err)
		}
		t.logger.Info("brief sent to telegram", "peer", t.peerName())
		return nil
	})
}

func (t *Telegram) peerName() string {
	if t.cfg.Peer == "" {
		return "saved messages"
	}
	return t.cfg.Peer
}

// run connects, logs in if the stored session is missing or expired and
// calls f with the authenticated client.
func (t *Telegram) run(ctx context.Context, f func(ctx context.Context, client *telegram.Client) error) error {
	dir := t.sessionDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create telegram session directory with %w", err)
	}

	waiter := floodwait.NewWaiter().WithCallback(func(ctx context.Context, wait floodwait.FloodWait) {
		t.logger.Warn("telegram rate limit", "retry_after", wait.Duration)
	})

	client := telegram.NewClient(t.cfg.AppID, t.cfg.AppHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: filepath.Join(dir, sessionFile)},
		Logger:         t.zapLogger(ctx),
		Middlewares:    []telegram.Middleware{waiter},
	})
	flow := tdauth.NewFlow(t.Authenticator, tdauth.SendCodeOptions{})

	return waiter.Run(ctx, func(ctx context.Context) error {
		return client.Run(ctx, func(ctx context.Context) error {
			if err := client.Auth().IfNecessary(ctx, flow); err != nil {
				return fmt.Errorf("telegram authentication failed with %w", err)
			}

			self, err := client.Self(ctx)
			if err != nil {
				return fmt.Errorf("failed to get telegram self info with %w", err)
			}
			name := self.FirstName
			if self.Username != "" {
				name = fmt.Sprintf("%s (@%s)", name, self.Username)
			}
			t.logger.Debug("telegram authenticated", "as", name)

			return f(ctx, client)
		})
	})
}

func (t *Telegram) sessionDir() string {
	if t.cfg.SessionDir != "" {
		return t.cfg.SessionDir
	}
	return filepath.Dir(config.DefaultPath())
}

// zapLogger mirrors the slog level so gotd internals stay quiet unless
// debugging.
func (t *Telegram) zapLogger(ctx context.Context) *zap.Logger {
	level := zapcore.WarnLevel
	if t.logger.Enabled(ctx, slog.LevelDebug) {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
