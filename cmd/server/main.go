package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/certgen/internal/audit"
	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/JonMunkholm/certgen/internal/config"
	"github.com/JonMunkholm/certgen/internal/export"
	"github.com/JonMunkholm/certgen/internal/logging"
	"github.com/JonMunkholm/certgen/internal/render"
	"github.com/JonMunkholm/certgen/internal/session"
	"github.com/JonMunkholm/certgen/internal/sheet"
	"github.com/JonMunkholm/certgen/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then shuts down gracefully. Every
// resource opened here is released before it returns.
func run(ctx context.Context) error {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"sheet_format", cfg.Sheet.Format,
		"export_max_concurrent", cfg.Export.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"audit_enabled", cfg.Database.Enabled(),
	)
	slog.Debug("effective configuration", "config", cfg.String())

	theme, err := render.LoadTheme(cfg.Theme.File)
	if err != nil {
		return fmt.Errorf("load theme: %w", err)
	}

	parser, err := sheet.ParserFor(cfg.Sheet.Format)
	if err != nil {
		return err
	}
	fetcher := sheet.NewFetcher(cfg.Sheet.URL,
		sheet.WithTimeout(cfg.Sheet.Timeout),
		sheet.WithMaxBytes(cfg.Sheet.MaxBytes),
	)
	lookup := certificate.NewService(fetcher, parser)

	// Audit trail: PostgreSQL when configured, otherwise in memory
	var recorder audit.Recorder = audit.NewMemoryRecorder(audit.DefaultRecentLimit * 4)
	if cfg.Database.Enabled() {
		pool, err := audit.Connect(ctx, audit.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		pg := audit.NewPgRecorder(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("prepare audit schema: %w", err)
		}
		recorder = pg
		slog.Info("audit events stored in database")
	}

	// One shared browser, started on the first export
	browser := export.NewRodBrowser(
		export.WithBrowserBin(cfg.Export.BrowserBin),
		export.WithHeadless(cfg.Export.Headless),
	)
	defer func() {
		if err := browser.Close(); err != nil {
			slog.Warn("browser close error", "error", err)
		}
	}()

	limiter := export.NewLimiter(cfg.Export.MaxConcurrent, cfg.Export.MaxWaitTime)
	image := export.NewImageExporter(browser, limiter, theme,
		export.WithScale(cfg.Export.Scale),
		export.WithRenderTimeout(cfg.Export.Timeout),
	)

	server := web.NewServer(web.Deps{
		Lookup:   lookup,
		Sessions: session.NewStore(cfg.Session.TTL),
		Image:    image,
		Theme:    theme,
		Audit:    recorder,
		Renders:  limiter,
	}, cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		// Start failed before any shutdown was requested.
		_ = server.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown: %w", err))
	}

	// Wait for in-flight renders before the deferred browser close
	if status := limiter.Status(); status.Active > 0 {
		slog.Info("waiting for renders to complete", "active", status.Active)
		if err := limiter.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("renders did not complete in time", "error", err)
		}
	}

	if err := <-errCh; err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
