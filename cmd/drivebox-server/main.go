// Package main is the entry point for the Drivebox server.
// Drivebox is a minimal personal file-storage web application: users
// register, log in, upload files, list them, download them, and delete them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/drivebox/internal/config"
	"github.com/prn-tf/drivebox/internal/handler"
	"github.com/prn-tf/drivebox/internal/metrics"
	"github.com/prn-tf/drivebox/internal/repository"
	"github.com/prn-tf/drivebox/internal/repository/postgres"
	"github.com/prn-tf/drivebox/internal/repository/sqlite"
	"github.com/prn-tf/drivebox/internal/service"
	"github.com/prn-tf/drivebox/internal/session"
	"github.com/prn-tf/drivebox/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	setupLogger(cfg.Logging)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting Drivebox server")

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.Logger

	// Database and repositories
	userRepo, fileRepo, dbHealth, closeDB, err := buildRepositories(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	defer closeDB()

	// Blob storage
	backend, staticDir, err := buildStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("storage init: %w", err)
	}

	// Session store
	store, err := buildSessionStore(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("session store init: %w", err)
	}
	defer store.Close()

	// Services
	userService := service.NewUserService(userRepo, logger)
	sessionService := service.NewSessionService(userService, store, cfg.Session.TTL, logger)
	fileService := service.NewFileService(fileRepo, backend, logger)

	webHandler, err := handler.NewWebHandler(handler.WebConfig{
		UserService:    userService,
		SessionService: sessionService,
		FileService:    fileService,
		CookieName:     cfg.Session.CookieName,
		MaxUploadSize:  cfg.Server.MaxUploadSize,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("handler init: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	router := handler.NewRouter(handler.RouterConfig{
		WebHandler: webHandler,
		Database:   dbHealth,
		Metrics:    m,
		StaticDir:  staticDir,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var metricsServer *http.Server
	if m != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info().Str("addr", metricsServer.Addr).Str("path", cfg.Metrics.Path).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	logger.Info().Msg("server stopped")
	return nil
}

// buildRepositories creates repositories for the configured driver and runs
// migrations.
func buildRepositories(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (
	repository.UserRepository, repository.FileRepository, handler.DatabaseChecker, func(), error,
) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Path,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			JournalMode:     cfg.JournalMode,
			BusyTimeout:     cfg.BusyTimeout,
			CacheSize:       cfg.CacheSize,
			SynchronousMode: cfg.SynchronousMode,
		}, logger)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, nil, err
		}
		return sqlite.NewUserRepository(db), sqlite.NewFileRepository(db), db, func() { _ = db.Close() }, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, nil, err
		}
		return postgres.NewUserRepository(db), postgres.NewFileRepository(db), db, func() { _ = db.Close() }, nil

	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// buildStorage creates the blob storage backend. The returned staticDir is
// non-empty only when the filesystem backend should also be served read-only
// under /uploads/.
func buildStorage(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.Backend, string, error) {
	switch cfg.Backend {
	case "filesystem":
		fs, err := storage.NewFilesystemBackend(cfg.DataDir, logger)
		if err != nil {
			return nil, "", err
		}
		staticDir := ""
		if cfg.ServeStatic {
			staticDir = fs.DataDir()
		}
		return fs, staticDir, nil

	case "s3":
		s3b, err := storage.NewS3Backend(ctx, cfg.S3, logger)
		if err != nil {
			return nil, "", err
		}
		return s3b, "", nil

	default:
		return nil, "", fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// buildSessionStore creates the configured session store.
func buildSessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Store {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		return session.NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
