package main

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

	"github.com/spf13/cobra"

	"github.com/sagarc03/staticasset"
	"github.com/sagarc03/staticasset/config"
	"github.com/sagarc03/staticasset/filesystem"
	assethttp "github.com/sagarc03/staticasset/http"
	"github.com/sagarc03/staticasset/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the staticasset HTTP server.

Examples:
  # Serve ./public as a static website
  staticasset serve

  # Serve a single page app, reloading edits from disk
  staticasset serve --mode spa --path ./dist --watch

  # Redirect asset URLs to tagged names that can be cached forever
  staticasset serve --busting suffix`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port")
	serveCmd.Flags().String("mode", "static", "server mode (store, static, spa)")
	serveCmd.Flags().String("prefix", "", "URL path prefix the assets are served below")
	serveCmd.Flags().String("warmup", "hot", "registry warmup (hot, warm, cold)")
	serveCmd.Flags().Bool("watch", false, "watch the asset directory for changes")
	serveCmd.Flags().String("busting", "none", "cache busting mode (none, query, suffix)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mode, err := staticasset.ParseServerMode(cfg.Server.Mode)
	if err != nil {
		return fmt.Errorf("parse server mode: %w", err)
	}
	warmup, err := registry.ParseWarmup(cfg.Assets.Warmup)
	if err != nil {
		return fmt.Errorf("parse warmup: %w", err)
	}
	buster, err := cfg.Cache.Buster()
	if err != nil {
		return fmt.Errorf("parse cache busting: %w", err)
	}
	matcher, err := cfg.Assets.Matcher()
	if err != nil {
		return err
	}

	root, err := os.OpenRoot(cfg.Assets.Path)
	if err != nil {
		return fmt.Errorf("open asset root: %w", err)
	}
	defer func() { _ = root.Close() }()

	source := filesystem.NewSource(root, nil)
	reg := registry.New(registry.Options{
		Matcher: matcher,
		Loader:  source,
		Warmup:  warmup,
	})

	if warmup != registry.WarmupCold {
		changes, err := source.Changes(ctx, matcher, reg.NextGeneration)
		if err != nil {
			return fmt.Errorf("preload assets: %w", err)
		}
		if err := reg.Preload(ctx, changes); err != nil {
			return fmt.Errorf("preload assets: %w", err)
		}
		slog.Info("preloaded assets", "path", cfg.Assets.Path, "count", reg.Len())
	}

	watchDone := make(chan struct{})
	if cfg.Assets.Watch {
		watcher, err := filesystem.NewWatcher(ctx, source, filesystem.WatcherOptions{
			Debounce:    cfg.Assets.Debounce(),
			ReadContent: warmup == registry.WarmupHot,
			Generations: reg.NextGeneration,
			Matcher:     matcher,
		})
		if err != nil {
			return fmt.Errorf("watch assets: %w", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("watcher stopped", "err", err)
			}
		}()
		go func() {
			defer close(watchDone)
			if err := reg.Run(ctx, watcher.Changes()); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("registry stopped", "err", err)
			}
		}()
		go compactTombstones(ctx, reg, time.Minute)
		slog.Info("watching assets", "path", cfg.Assets.Path)
	} else {
		close(watchDone)
	}

	handler := assethttp.NewHandler(&assethttp.HandlerConfig{
		Mode:         mode,
		Prefix:       cfg.Assets.Prefix,
		CacheControl: cfg.Cache.Control,
		CacheBuster:  buster,
		CORS:         cfg.CORS,
	}, reg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "mode", mode, "warmup", warmup, "busting", buster.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "err", err)
	}
	stop()
	<-watchDone
	return nil
}

// compactTombstones drops tombstones older than the generation seen one
// interval earlier, so changes in flight at that point have been applied.
func compactTombstones(ctx context.Context, reg *registry.Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	horizon := reg.Generation()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reg.Compact(horizon); n > 0 {
				slog.Debug("compacted tombstones", "count", n)
			}
			horizon = reg.Generation()
		}
	}
}
