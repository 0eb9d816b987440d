// Package internal provides the application initialization and runtime logic
// behind each command.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/avatars/internal/catalog"
	"github.com/starford/avatars/internal/mcpserver"
	"github.com/starford/avatars/internal/mirror"
	"github.com/starford/avatars/internal/pages"
	"github.com/starford/avatars/internal/resources"
	"github.com/starford/avatars/internal/rpcserver"
	"github.com/starford/avatars/internal/sse"
	"github.com/starford/avatars/internal/storage"
)

func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// stdout may carry protocol traffic, so logs always go to stderr.
	logger := slog.New(slog.NewJSONHandler(app.stderr, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// checkLibrary verifies the persona directory and base instructions exist.
func checkLibrary(cfg *Config) error {
	info, err := os.Stat(cfg.Library.Dir)
	if err != nil {
		return fmt.Errorf("persona directory %s: %w", cfg.Library.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("persona directory %s is not a directory", cfg.Library.Dir)
	}
	info, err = os.Stat(cfg.Library.BaseInstructions)
	if err != nil {
		return fmt.Errorf("base instructions %s: %w", cfg.Library.BaseInstructions, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("base instructions %s is not a regular file", cfg.Library.BaseInstructions)
	}
	return nil
}

func newResources(cfg *Config) (*resources.Service, error) {
	store, err := storage.NewFS(cfg.Library.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return resources.New(store, resources.Config{
		BaseInstructions: cfg.Library.BaseInstructions,
		CatalogURI:       cfg.Server.CatalogURI,
		Concurrency:      cfg.Server.ReadConcurrency,
	}), nil
}

func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// Generate builds the catalog and writes it next to the personas.
func Generate(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	if err := checkLibrary(cfg); err != nil {
		return err
	}

	b := catalog.NewBuilder(cfg.Pages.BaseURL, logger)
	if _, err := b.Generate(cfg.Library.Dir, cfg.Library.BaseInstructions); err != nil {
		return err
	}
	_, err = fmt.Fprintf(app.stdout, "wrote %s\n", cfg.Library.CatalogPath())
	return err
}

// Watch generates the catalog and keeps regenerating it on changes until
// interrupted.
func Watch(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	if err := checkLibrary(cfg); err != nil {
		return err
	}

	b := catalog.NewBuilder(cfg.Pages.BaseURL, logger)
	if _, err := b.Generate(cfg.Library.Dir, cfg.Library.BaseInstructions); err != nil {
		return err
	}

	ctx, stop := withSignals(ctx)
	defer stop()
	return catalog.Watch(ctx, b, cfg.Library.Dir, cfg.Library.BaseInstructions, logger, nil)
}

// Serve runs the line-delimited JSON-RPC resource server on stdio.
func Serve(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	res, err := newResources(cfg)
	if err != nil {
		return err
	}

	ctx, stop := withSignals(ctx)
	defer stop()

	logger.Info("rpc: serving",
		slog.String("dir", cfg.Library.Dir),
		slog.Int("read_concurrency", cfg.Server.ReadConcurrency))
	srv := rpcserver.New(res, rpcserver.Info{Name: cfg.Server.Name, Version: cfg.Server.Version}, logger)
	if err := srv.Serve(ctx, app.stdin, app.stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// MCP runs the MCP server on stdio.
func MCP(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	res, err := newResources(cfg)
	if err != nil {
		return err
	}

	srv, err := mcpserver.New(res,
		catalog.NewBuilder(cfg.Pages.BaseURL, logger),
		mcpserver.Info{Name: cfg.Server.Name, Version: cfg.Server.Version},
		logger)
	if err != nil {
		return err
	}

	ctx, stop := withSignals(ctx)
	defer stop()
	return srv.Serve(ctx, app.stdin, app.stdout)
}

// HTTP runs the content host until interrupted.
func HTTP(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	res, err := newResources(cfg)
	if err != nil {
		return err
	}

	broker := sse.NewBroker()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           pages.NewRouter(res, cfg.Auth.BearerToken(), broker, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := withSignals(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	if cfg.App.HTTP.Watch {
		b := catalog.NewBuilder(cfg.Pages.BaseURL, logger)
		g.Go(func() error {
			return catalog.Watch(gCtx, b, cfg.Library.Dir, cfg.Library.BaseInstructions, logger, broker.PublishRebuild)
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		// Event streams only end when their channel closes.
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

// URIs prints the uri of every entry of a catalog file, one per line. An
// empty path means the configured catalog.
func URIs(ctx context.Context, path string, opts ...Option) error {
	app, _, err := newApplication(opts)
	if err != nil {
		return err
	}
	if path == "" {
		path = app.config.Library.CatalogPath()
	}

	c, err := catalog.Load(path)
	if err != nil {
		return err
	}
	for _, uri := range c.URIs() {
		if _, err := fmt.Fprintln(app.stdout, uri); err != nil {
			return err
		}
	}
	return nil
}

// Sync mirrors the published library into the working directory.
func Sync(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	m, err := mirror.New(mirror.Config{
		BaseURL:          cfg.Mirror.BaseURL,
		BaseInstructions: filepath.ToSlash(cfg.Library.BaseInstructions),
		Catalog:          filepath.ToSlash(cfg.Library.CatalogPath()),
		Timeout:          cfg.Mirror.Timeout,
	}, nil, logger)
	if err != nil {
		return err
	}

	ctx, stop := withSignals(ctx)
	defer stop()

	sum, err := m.Sync(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(app.stdout, "synced %d files (%d updated, %d unchanged) from %s\n",
		sum.Total, sum.Updated, sum.Unchanged(), cfg.Mirror.BaseURL)
	return err
}
