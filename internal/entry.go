// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/theaibuilders/ai-builders-tutorial/internal/api"
	"github.com/theaibuilders/ai-builders-tutorial/internal/github"
	"github.com/theaibuilders/ai-builders-tutorial/internal/highlight"
	"github.com/theaibuilders/ai-builders-tutorial/internal/index"
	"github.com/theaibuilders/ai-builders-tutorial/internal/metadata"
	"github.com/theaibuilders/ai-builders-tutorial/internal/render"
	"github.com/theaibuilders/ai-builders-tutorial/internal/site"
	"github.com/theaibuilders/ai-builders-tutorial/internal/sse"
	"github.com/theaibuilders/ai-builders-tutorial/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger and installs it as default.
func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// components are the collaborators shared by every entry point.
type components struct {
	source storage.Source
	style  *highlight.Chroma
	site   *site.Service
	// meta is nil when no override directory is configured.
	meta *metadata.Store
}

func (a *application) build(logger *slog.Logger) (*components, error) {
	cfg := a.config
	c := &components{}

	switch cfg.Content.Source {
	case SourceGitHub:
		src, err := github.NewSource(github.Config{
			BaseURL: cfg.Content.GitHub.BaseURL,
			Owner:   cfg.Content.GitHub.Owner,
			Repo:    cfg.Content.GitHub.Repo,
			Ref:     cfg.Content.GitHub.Ref,
			Root:    cfg.Content.GitHub.Root,
			Token:   cfg.Content.GitHub.Token,
		})
		if err != nil {
			return nil, fmt.Errorf("init github source: %w", err)
		}
		c.source = src
	default:
		// Ensure content directory exists.
		if err := os.MkdirAll(cfg.Content.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create content dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Content.Path)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		c.source = fs
	}

	if cfg.Metadata.Dir != "" {
		if err := os.MkdirAll(cfg.Metadata.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metadata dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Metadata.Dir)
		if err != nil {
			return nil, fmt.Errorf("init metadata storage: %w", err)
		}
		c.meta = metadata.NewStore(fs, cfg.Metadata.File,
			metadata.WithDefaultAuthorID(cfg.Metadata.DefaultAuthorID))
	}

	c.site, c.style = a.newSite(c.source, c.meta, logger)
	return c, nil
}

// newSite wires the highlighter and renderers into a site service over src.
// meta may be nil.
func (a *application) newSite(src storage.Source, meta *metadata.Store, logger *slog.Logger) (*site.Service, *highlight.Chroma) {
	cfg := a.config
	var preload []string
	if cfg.Render.DefaultLanguage != "" {
		preload = append(preload, cfg.Render.DefaultLanguage)
	}
	style := highlight.NewChroma(highlight.Options{
		Style:     cfg.Render.Style,
		Languages: preload,
		Logger:    logger,
	})
	notebooks := render.New(style,
		render.WithDefaultLanguage(cfg.Render.DefaultLanguage),
		render.WithWorkers(cfg.Render.Workers),
	)

	opts := []site.Option{
		site.WithResolver(metadata.NewResolver(metadata.WithDefaultAuthor(cfg.Metadata.DefaultAuthor))),
		site.WithMarkdownRenderer(render.NewMarkdownRenderer(cfg.Render.Style)),
		site.WithLogger(logger),
		site.WithWorkers(cfg.Render.Workers),
	}
	if meta != nil {
		opts = append(opts, site.WithOverrides(meta))
	}
	return site.NewService(src, notebooks, opts...), style
}

// openIndex opens the search index and brings it in line with the content.
func (a *application) openIndex(c *components, logger *slog.Logger) (*index.DB, error) {
	db, err := index.Open(a.config.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, c.source, c.site, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return db, nil
}

// watching reports whether the content tree is watched for changes.
func (a *application) watching() bool {
	return a.config.Content.Source != SourceGitHub && a.config.Content.Watch
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_source", cfg.Content.Source),
		slog.String("content_path", cfg.Content.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := app.build(logger)
	if err != nil {
		return err
	}

	db, err := app.openIndex(c, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	apiRouter := api.NewRouter(api.Deps{
		Site:     c.site,
		Index:    db,
		Metadata: c.meta,
		Style:    c.style,
		Assets:   c.source,
		Events:   broker,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Start file watcher with SSE callback.
	if app.watching() {
		g.Go(func() error {
			if err := index.Watch(gCtx, db, c.source, c.site, cfg.Content.Path, logger, broker.PublishTutorialEvent); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		stop()

		// Closing the broker ends open event streams so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
