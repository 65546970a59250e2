package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"go-skin-renderer/internal/config"
	"go-skin-renderer/internal/plugin"
	"go-skin-renderer/internal/session"
	"go-skin-renderer/internal/skin"
	"go-skin-renderer/internal/storage"
	"go-skin-renderer/internal/templating"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "Path to the config file")
	flags.String("listen_addr", ":8080", "Address to listen on")
	flags.String("install_dir", ".", "Install root holding skins/, plugins/ and program/")
	flags.String("skin", skin.DefaultSkin, "Default skin")
	flags.Bool("devel_mode", false, "Development mode: skin switching by URL and metadata reloading")
	flags.String("log_level", "info", "Log level (debug, info, warn, error)")
	flags.String("session_db", "", "SQLite file for sessions; sessions are kept in memory when empty")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.GetString("log_level"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root, err := filepath.Abs(cfg.GetString("install_dir"))
	if err != nil {
		return fmt.Errorf("resolving install dir: %w", err)
	}
	logger.Info("Using install root", "path", root)

	store, err := storage.NewJSONStore(root, logger)
	if err != nil {
		return fmt.Errorf("initializing skin store: %w", err)
	}

	var sessions sessionSource
	if path := cfg.GetString("session_db"); path != "" {
		db, err := session.OpenDB(path)
		if err != nil {
			return err
		}
		defer db.Close()
		sessions = dbSessions{db: db}
		logger.Info("Storing sessions in database", "path", path)
	} else {
		sessions = newMemorySessions(time.Duration(cfg.GetInt("session_lifetime")) * time.Minute)
	}

	engine := templating.NewEngine(cfg, store, plugin.NewDispatcher(logger), logger)
	engine.Objects().Register("searchform", (*templating.Output).SearchForm)

	if cfg.GetBool("devel_mode") {
		watcher, err := skin.NewWatcher(root, engine.Resolver(), logger)
		if err != nil {
			return err
		}
		defer watcher.Close()
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Skin metadata watcher not started", "error", err)
		}
	}

	app := &application{
		logger:   logger,
		cfg:      cfg,
		engine:   engine,
		store:    store,
		sessions: sessions,
		root:     root,
	}

	srv := &http.Server{
		Addr:              cfg.GetString("listen_addr"),
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
