package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/errgroup"

	"github.com/jamoveo/backend/internal/config"
	"github.com/jamoveo/backend/internal/content"
	"github.com/jamoveo/backend/internal/database"
	"github.com/jamoveo/backend/internal/db"
	"github.com/jamoveo/backend/internal/hub"
	"github.com/jamoveo/backend/internal/logging"
	"github.com/jamoveo/backend/internal/router"
	jsentry "github.com/jamoveo/backend/internal/sentry"
	"github.com/jamoveo/backend/internal/session"
)

func main() {
	// Initialize structured logging (reads LOGGING_LEVEL env var)
	logging.Initialize()

	// Load configuration
	cfg := config.Load()

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:                   cfg.SentryDSN,
			Environment:           cfg.SentryEnvironment,
			BeforeSend:            jsentry.ScrubEvent,
			BeforeSendTransaction: jsentry.ScrubTransaction,
		})
		if err != nil {
			slog.Error("failed to initialize sentry", slog.String("error", err.Error()))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Initialize database
	sqlDB, err := database.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(sqlDB); err != nil {
		slog.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize queries
	queries := db.New(sqlDB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newContentStore(ctx, cfg, queries)
	if err != nil {
		slog.Error("failed to build content index", slog.String("error", err.Error()))
		os.Exit(1)
	}

	h := hub.New(session.NewState(), store, hub.WithResolveTimeout(cfg.ContentResolveTimeout))

	// Create router
	r := router.New(cfg, router.Deps{Queries: queries, Hub: h, Content: store})
	defer r.Close()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("starting server", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, cleaning up")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Hijacked websocket connections are not tracked by Shutdown.
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newContentStore indexes content-bearing songs from the catalog. CONTENT_DIR
// overrides the embedded song files.
func newContentStore(ctx context.Context, cfg *config.Config, queries *db.Queries) (*content.FSStore, error) {
	rows, err := queries.ListContentFiles(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(rows))
	for _, row := range rows {
		index[row.ID] = row.ContentFile
	}

	var fsys fs.FS = content.Embedded()
	if cfg.ContentDir != "" {
		fsys = os.DirFS(cfg.ContentDir)
	}
	slog.Info("content store ready", slog.Int("songs", len(index)), slog.String("dir", cfg.ContentDir))
	return content.NewFSStore(fsys, index), nil
}
