package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Local writes the brief into a directory on disk
type Local struct {
	dir    string
	logger *slog.Logger
}

func NewLocal(dir string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{dir: dir, logger: logger}
}

func (l *Local) Name() string { return "local" }

// Check creates the directory when missing and verifies it accepts files
func (l *Local) Check(_ context.Context) error {
	info, err := os.Stat(l.dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(l.dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory '%s' with %w", l.dir, err)
		}
	case err != nil:
		return fmt.Errorf("failed to stat output directory '%s' with %w", l.dir, err)
	case !info.IsDir():
		return fmt.Errorf("output path '%s' is not a directory", l.dir)
	}

	probe, err := os.CreateTemp(l.dir, ".pressbrief-*")
	if err != nil {
		return fmt.Errorf("no write permissions on '%s': %w", l.dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

func (l *Local) Store(_ context.Context, filename string, data []byte) error {
	path := filepath.Join(l.dir, filename)
	l.logger.Info("saving brief locally", "path", path)

	tmp, err := os.CreateTemp(l.dir, filename+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file with %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write brief with %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close brief with %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to move brief to '%s' with %w", path, err)
	}

	l.logger.Info("brief saved", "path", path, "bytes", len(data))
	return nil
}
