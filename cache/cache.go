package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Cache stores shortened links so repeated runs do not hit the shortener again
type Cache struct {
	db     *sql.DB
	logger *slog.Logger
}

// CacheStats contains cache statistics
type CacheStats struct {
	LinkEntries int
	OldestEntry time.Time
}

// NewCache initializes cache database at the given path
func NewCache(dbPath string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// Links are written from many fetch workers, sqlite wants one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &Cache{db: db, logger: logger}, nil
}

// GetLink retrieves a cached short link
// Returns: (short, found, error)
func (c *Cache) GetLink(ctx context.Context, longURL, provider string) (string, bool, error) {
	var short string

	err := c.db.QueryRowContext(ctx,
		"SELECT short_url FROM link_cache WHERE long_url = ? AND provider = ?",
		longURL, provider,
	).Scan(&short)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		c.logger.Warn("link cache read error", "error", err, "url", truncate(longURL, 50))
		return "", false, nil // Treat errors as cache miss
	}

	// A stale accessed_at makes Prune drop an entry that is still in use
	if _, err := c.db.ExecContext(ctx,
		"UPDATE link_cache SET accessed_at = ? WHERE long_url = ? AND provider = ?",
		time.Now().Unix(), longURL, provider,
	); err != nil {
		c.logger.Warn("link cache touch error", "error", err, "url", truncate(longURL, 50))
	}

	return short, true, nil
}

// SetLink stores a short link in cache
func (c *Cache) SetLink(ctx context.Context, longURL, provider, short string) error {
	now := time.Now().Unix()

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO link_cache
		(long_url, provider, short_url, created_at, accessed_at)
		VALUES (?, ?, ?, ?, ?)
	`, longURL, provider, short, now, now)

	if err != nil {
		c.logger.Warn("link cache write error", "error", err, "url", truncate(longURL, 50))
		return err
	}

	return nil
}

// Prune removes entries not accessed since the given time
func (c *Cache) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM link_cache WHERE accessed_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune link cache: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all cache entries
func (c *Cache) Clear() error {
	if _, err := c.db.Exec("DELETE FROM link_cache"); err != nil {
		return fmt.Errorf("failed to clear link cache: %w", err)
	}
	return nil
}

// Stats returns cache statistics
func (c *Cache) Stats() (CacheStats, error) {
	var stats CacheStats

	err := c.db.QueryRow("SELECT COUNT(*) FROM link_cache").Scan(&stats.LinkEntries)
	if err != nil {
		return stats, err
	}

	var oldestUnix sql.NullInt64
	err = c.db.QueryRow("SELECT MIN(created_at) FROM link_cache").Scan(&oldestUnix)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return stats, err
	}
	if oldestUnix.Valid && oldestUnix.Int64 > 0 {
		stats.OldestEntry = time.Unix(oldestUnix.Int64, 0)
	}

	return stats, nil
}

// Close closes the cache database
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
