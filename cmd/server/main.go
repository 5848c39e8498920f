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
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/billbook/internal/autosave"
	"github.com/mmynk/billbook/internal/billing"
	"github.com/mmynk/billbook/internal/config"
	"github.com/mmynk/billbook/internal/export"
	"github.com/mmynk/billbook/internal/httpapi"
	"github.com/mmynk/billbook/internal/storage/sqlite"
	"github.com/mmynk/billbook/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logCloser := logging.SetupWithOptions(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	engine, err := billing.New(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to start billing engine: %w", err)
	}

	saver, err := autosave.New(engine, cfg.AutosaveInterval)
	if err != nil {
		return err
	}
	saver.Start()
	defer func() {
		saver.Stop()
		// One last save so nothing typed since the previous tick is lost.
		if err := engine.AutoSave(context.Background()); err != nil {
			slog.Warn("Final save failed", "error", err)
		}
	}()

	opts := []httpapi.Option{
		httpapi.WithExporter(export.PDFExporter{Timeout: cfg.ChromeTimeout, ExecPath: cfg.ChromePath}),
		httpapi.WithExporter(export.XLSXExporter{}),
		httpapi.WithExporter(export.HTMLExporter{}),
	}
	staticDir, err := filepath.Abs(cfg.StaticPath)
	if err != nil {
		return fmt.Errorf("failed to resolve static path: %w", err)
	}
	if _, err := os.Stat(staticDir); err == nil {
		slog.Info("Serving static files", "path", staticDir)
		opts = append(opts, httpapi.WithStaticDir(staticDir))
	} else {
		slog.Warn("Static path not found, serving API only", "path", staticDir)
	}

	// h2c lets the UI use HTTP/2 over plain loopback.
	handler := h2c.NewHandler(httpapi.New(engine, opts...).Handler(), &http2.Server{})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", cfg.HTTPAddr, "url", fmt.Sprintf("http://%s", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		slog.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
