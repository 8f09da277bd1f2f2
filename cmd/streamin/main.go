package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mantonx/streamin/internal/config"
	"github.com/mantonx/streamin/internal/database"
	"github.com/mantonx/streamin/internal/logger"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule"
	"github.com/mantonx/streamin/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "streamin: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := config.ResolvePath()
	if err := config.Load(configPath); err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	cfg := config.Get()

	log := logger.New(cfg.Logging)
	logger.SetDefault(log)
	log.Info("configuration loaded", "path", configPath, "database", cfg.Database.Type)

	if err := config.CheckDirs(cfg.Dirs); err != nil {
		return err
	}

	db, err := database.Open(cfg.Database, log.IsTrace())
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	defer sqlDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	module := transcodingmodule.NewModule(transcodingmodule.ModuleConfig(cfg), db, log)
	if err := module.Migrate(db); err != nil {
		return err
	}
	if err := module.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", module.Name(), err)
	}

	engine := server.SetupRouter(log, sqlDB)
	if err := module.RegisterRoutes(engine); err != nil {
		return err
	}

	srv := server.New(cfg.Server, engine, log)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if err := module.Shutdown(shutdownCtx); err != nil {
		log.Error("module shutdown failed", "error", err)
	}
	log.Info("server exited")
	return nil
}
