// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/auth"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/blog"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/config"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/docstore"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/logging"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/media"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/middleware"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/pages"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/scheduler"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/session"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/store"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/theme"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "aitasol - inline-editable marketing site server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AITASOL_SESSION_SECRET    Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AITASOL_DB_PATH           SQLite database path (default: ./data/aitasol.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AITASOL_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AITASOL_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AITASOL_ADMIN_PREFIX      Admin dashboard path (default: /admin)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AITASOL_REDIS_URL         Redis URL for live updates across instances (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  AITASOL_DO_SEED           Seed the admin user, home page and theme (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
	if *showVersion {
		_, _ = fmt.Println(info.String())
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(info version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	notifier, redisNotifier, err := newNotifier(*cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			slog.Error("error closing change notifier", "error", err)
		}
	}()
	docs := docstore.NewSQLStore(db, notifier, logger)
	defer func() {
		if err := docs.Close(); err != nil {
			slog.Error("error closing document store", "error", err)
		}
	}()

	// Upgrade logger to also write WARN and ERROR logs to the event log
	eventLog := logging.NewEventLog(docs)
	logger = slog.New(logging.NewEventLogHandler(textHandler, eventLog))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DoSeed {
		if err := store.Seed(ctx, docs, store.SeedConfig{
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
		}, logger); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	sessionManager := session.New(db, cfg.IsDevelopment())
	authSession := auth.NewSession(docs, sessionManager, logger)
	directory := auth.NewDirectory(docs, logger)
	pageRepo := pages.NewRepository(docs, logger)
	blogService := blog.NewService(docs, logger)

	themes := theme.NewRegistry(docs, logger)
	initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
	err = themes.Init(initCtx)
	initCancel()
	if err != nil {
		return fmt.Errorf("loading active theme: %w", err)
	}
	defer themes.Close()

	compressor := media.NewCompressor(media.Options{
		MaxWidth:  cfg.ImageMaxWidth,
		MaxHeight: cfg.ImageMaxWidth,
		Quality:   cfg.ImageQuality,
	})

	sched := scheduler.New(logger)
	if err := sched.Add(scheduler.ThemeAuditJob(themes, cfg.ThemeAuditSchedule, logger)); err != nil {
		return fmt.Errorf("scheduling theme audit: %w", err)
	}
	if err := sched.Add(scheduler.EventPruneJob(eventLog, cfg.EventRetention, cfg.EventPruneSchedule, logger)); err != nil {
		return fmt.Errorf("scheduling event pruning: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()
	publicLimiter := middleware.NewRateLimiter(10.0, 20)
	defer publicLimiter.Close()
	csrfProtection, err := middleware.CSRF(middleware.DefaultCSRFConfig(cfg.IsDevelopment(), cfg.ServerPort))
	if err != nil {
		return err
	}

	r := newRouter(routerDeps{
		ctx:        ctx,
		cfg:        *cfg,
		info:       info,
		db:         db,
		docs:       docs,
		redis:      redisNotifier,
		sm:         sessionManager,
		auth:       authSession,
		directory:  directory,
		pages:      pageRepo,
		blog:       blogService,
		themes:     themes,
		events:     eventLog,
		jobs:       sched,
		compressor: compressor,
		lp:         loginProtection,
		limiter:    publicLimiter,
		csrf:       csrfProtection,
		logger:     logger,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	// Hijacked live sockets are not tracked by Shutdown.
	srv.RegisterOnShutdown(cancel)

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newNotifier picks the change notifier: Redis when configured so several
// instances share live updates, otherwise in-process.
func newNotifier(cfg config.Config, logger *slog.Logger) (docstore.Notifier, *docstore.RedisNotifier, error) {
	if !cfg.UseRedis() {
		return docstore.NewLocalNotifier(), nil, nil
	}
	opts := docstore.DefaultRedisNotifierOptions()
	opts.URL = cfg.RedisURL
	opts.Prefix = cfg.RedisPrefix
	n, err := docstore.NewRedisNotifier(opts, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	slog.Info("redis change notifier enabled", "prefix", cfg.RedisPrefix)
	return n, n, nil
}
