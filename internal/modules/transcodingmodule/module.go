// Package transcodingmodule converts source media into DASH packages.
//
// The module wires together:
//   - the media inventory (ffprobe, probe cache, directory watcher)
//   - the session manager, which plans and runs one pipeline job per request
//   - job history persistence
//   - host and stage process sampling
//   - the temp dir sweep of stale intermediates
//   - the HTTP API
//
// Architecture:
//
//	API → SessionManager → Job → Stage processes (ffmpeg, mp4fragment, mp4dash)
package transcodingmodule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamin/internal/config"
	"github.com/mantonx/streamin/internal/database"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/api"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/cleanup"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/ffmpeg"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/library"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/pipeline"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/session"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/stage"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/system"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/types"
	"github.com/mantonx/streamin/internal/utils"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the transcoding module
	ModuleID = "system.transcoding"

	// ModuleName is the display name for the transcoding module
	ModuleName = "DASH Conversion"

	// ModuleVersion is the version of the transcoding module
	ModuleVersion = "1.0.0"
)

// Module implements the conversion service as a module
type Module struct {
	config *types.Config
	db     *gorm.DB
	logger hclog.Logger

	launcher  pipeline.Launcher
	pool      *utils.WorkerPool
	inventory *library.Inventory
	watcher   *library.Watcher
	sampler   *system.Sampler
	sessions  *session.Manager
	cleaner   *cleanup.Service
	handler   *api.APIHandler

	stopCleanup context.CancelFunc
	background  sync.WaitGroup
}

// Option configures a Module.
type Option func(*Module)

// WithLauncher replaces the stage process launcher.
func WithLauncher(launcher pipeline.Launcher) Option {
	return func(m *Module) {
		m.launcher = launcher
	}
}

// NewModule creates a new transcoding module. db may be nil, in which case
// job history is not persisted.
func NewModule(cfg *types.Config, db *gorm.DB, logger hclog.Logger, opts ...Option) *Module {
	if cfg == nil {
		cfg = types.DefaultConfig()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	m := &Module{
		config: cfg,
		db:     db,
		logger: logger.Named("transcoding"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ModuleConfig derives the module configuration from the application
// configuration.
func ModuleConfig(cfg *config.Config) *types.Config {
	return &types.Config{
		UnprocessedDir: cfg.Dirs.Unprocessed,
		ProcessedDir:   cfg.Dirs.Processed,
		TempDir:        cfg.Dirs.Temp,
		Tools: types.ToolPaths{
			FFmpeg:      cfg.Tools.FFmpeg,
			FFprobe:     cfg.Tools.FFprobe,
			MP4Fragment: cfg.Tools.MP4Fragment,
			MP4Dash:     cfg.Tools.MP4Dash,
		},
		FlushEvery:      cfg.Pipeline.FlushEvery,
		WatchLibrary:    cfg.Pipeline.WatchLibrary,
		ProbeWorkers:    cfg.Pipeline.ProbeWorkers,
		CleanupAfter:    cfg.Pipeline.CleanupAfter,
		CleanupInterval: cfg.Pipeline.CleanupInterval,
	}
}

// ID returns the unique module identifier
func (m *Module) ID() string {
	return ModuleID
}

// Name returns the module display name
func (m *Module) Name() string {
	return ModuleName
}

// GetVersion returns the module version
func (m *Module) GetVersion() string {
	return ModuleVersion
}

// Migrate performs any necessary database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	m.logger.Info("migrating job history schema")
	return database.Migrate(db)
}

// Init builds the module components and closes out jobs left running by a
// previous process.
func (m *Module) Init(ctx context.Context) error {
	m.logger.Info("initializing transcoding module",
		"unprocessed", m.config.UnprocessedDir,
		"processed", m.config.ProcessedDir,
		"temp", m.config.TempDir)

	if err := os.MkdirAll(m.config.TempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}

	if m.launcher == nil {
		m.launcher = pipeline.NewExecLauncher(m.config.Tools, m.logger)
	}

	m.pool = utils.NewWorkerPool(m.config.ProbeWorkers)
	m.pool.Start()

	prober := ffmpeg.NewMediaProber(m.config.Tools.FFprobe, m.logger)
	m.inventory = library.NewInventory(prober, m.pool, m.logger)

	if m.config.WatchLibrary {
		watcher, err := library.NewWatcher(m.inventory.Cache(), m.logger, m.config.UnprocessedDir, m.config.ProcessedDir)
		if err != nil {
			m.logger.Warn("library watcher disabled", "error", err)
		} else {
			m.watcher = watcher
			m.watcher.Start()
		}
	}

	m.sampler = system.NewSampler(m.logger, map[string]string{
		"unprocessed": m.config.UnprocessedDir,
		"processed":   m.config.ProcessedDir,
		"temp":        m.config.TempDir,
	})

	var store *session.Store
	if m.db != nil {
		store = session.NewStore(m.db, m.logger)
	}
	m.sessions = session.NewManager(store, m.inventory, session.Config{
		UnprocessedDir: m.config.UnprocessedDir,
		Layout:         stage.Layout{TempDir: m.config.TempDir, ProcessedDir: m.config.ProcessedDir},
		FlushEvery:     m.config.FlushEvery,
		Launcher:       m.launcher,
	}, m.logger)

	if _, err := m.sessions.Recover(ctx); err != nil {
		m.logger.Warn("failed to recover interrupted jobs", "error", err)
	}

	m.cleaner = cleanup.NewService(cleanup.Config{
		TempDir:   m.config.TempDir,
		Retention: m.config.CleanupAfter,
		Interval:  m.config.CleanupInterval,
	}, m.sessions, m.logger)
	if m.config.CleanupInterval > 0 {
		cleanupCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		m.stopCleanup = cancel
		m.background.Add(1)
		go func() {
			defer m.background.Done()
			m.cleaner.Run(cleanupCtx)
		}()
	}

	m.handler = api.NewAPIHandler(m.inventory, m.sessions, m.sampler, api.Dirs{
		Unprocessed: m.config.UnprocessedDir,
		Processed:   m.config.ProcessedDir,
	}, m.logger)

	return nil
}

// RegisterRoutes registers all transcoding module HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) error {
	if m.handler == nil {
		return errors.New("transcoding module is not initialized")
	}
	api.RegisterRoutes(router, m.handler)
	return nil
}

// Cleaner exposes the temp dir sweeper.
func (m *Module) Cleaner() *cleanup.Service {
	return m.cleaner
}

// Sessions exposes the session manager.
func (m *Module) Sessions() *session.Manager {
	return m.sessions
}

// Shutdown cancels running jobs and stops background workers
func (m *Module) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down transcoding module")

	if m.stopCleanup != nil {
		m.stopCleanup()
	}

	var errs []error
	if m.sessions != nil {
		if err := m.sessions.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if m.watcher != nil {
		if err := m.watcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop watcher: %w", err))
		}
	}
	if m.pool != nil {
		m.pool.Stop()
	}
	m.background.Wait()
	return errors.Join(errs...)
}
