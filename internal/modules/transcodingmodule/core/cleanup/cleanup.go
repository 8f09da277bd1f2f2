// Package cleanup removes conversion intermediates that linger in the temp
// directory after their job has finished.
package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/stage"
)

// ActiveMedia reports the source names whose intermediates are still in use.
type ActiveMedia interface {
	ActiveMedia() []string
}

// Config contains cleanup configuration
type Config struct {
	TempDir string

	// Retention is the minimum age of a removable intermediate
	Retention time.Duration

	// Interval between sweeps started by Run
	Interval time.Duration
}

// Stats summarises one sweep.
type Stats struct {
	Scanned   int
	Removed   int
	FreedSize int64
	Skipped   int
}

// Service sweeps split and fragment outputs out of the temp directory.
type Service struct {
	config Config
	active ActiveMedia
	logger hclog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewService creates a new cleanup service
func NewService(config Config, active ActiveMedia, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{
		config: config,
		active: active,
		logger: logger.Named("cleanup-service"),
		now:    time.Now,
	}
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("starting cleanup service",
		"interval", s.config.Interval,
		"retention", s.config.Retention,
		"temp_dir", s.config.TempDir)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(); err != nil {
			s.logger.Error("cleanup sweep failed", "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			s.logger.Info("cleanup service stopped")
			return
		}
	}
}

// Sweep removes every intermediate older than Retention whose source has no
// running session.
func (s *Service) Sweep() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.config.TempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp directory: %w", err)
	}

	inUse := make(map[string]bool)
	if s.active != nil {
		for _, name := range s.active.ActiveMedia() {
			inUse[name] = true
		}
	}

	stats := &Stats{}
	cutoff := s.now().Add(-s.config.Retention)
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !stage.IsIntermediate(entry.Name()) {
			continue
		}
		stats.Scanned++

		if inUse[stage.MediaName(entry.Name())] {
			stats.Skipped++
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			stats.Skipped++
			continue
		}

		path := filepath.Join(s.config.TempDir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove intermediate", "path", path, "error", err)
			continue
		}
		stats.Removed++
		stats.FreedSize += info.Size()
	}

	if stats.Removed > 0 {
		s.logger.Info("removed stale intermediates",
			"removed_count", stats.Removed,
			"freed_bytes", stats.FreedSize)
	} else {
		s.logger.Debug("cleanup cycle complete", "scanned", stats.Scanned, "skipped", stats.Skipped)
	}
	return stats, nil
}
