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

	"github.com/p-n-ai/pai-progress/internal/challenge"
	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/httpapi"
	"github.com/p-n-ai/pai-progress/internal/learner"
	"github.com/p-n-ai/pai-progress/internal/platform/cache"
	"github.com/p-n-ai/pai-progress/internal/platform/config"
	"github.com/p-n-ai/pai-progress/internal/platform/database"
	"github.com/p-n-ai/pai-progress/internal/platform/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.New(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// app holds the wired components and the resources to release on exit.
type app struct {
	store    *curriculum.Store
	registry *challenge.Registry
	handler  http.Handler
	closers  []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.store.Load(ctx); err != nil {
		return fmt.Errorf("load curriculum: %w", err)
	}
	if a.store.Model().Empty() {
		slog.Warn("curriculum is empty, every source failed or none was found", "path", cfg.Curriculum.Path)
	}

	if cfg.Curriculum.Watch && cfg.Curriculum.BaseURL == "" {
		w, err := curriculum.NewWatcher(cfg.Curriculum.Path, a.store, cfg.Curriculum.WatchDebounce)
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				slog.Warn("curriculum watcher stopped", "error", err)
			}
		}()
	}

	go challenge.RunResetLoop(ctx, a.registry, cfg.Challenges.ResetInterval)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newApp connects the configured backends and wires the engine.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := map[string]httpapi.Checker{}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var db *database.DB
	if cfg.NeedsDatabase() {
		db, err = database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db
		slog.Info("database connected")
	}

	var rdb *cache.Cache
	if cfg.NeedsCache() {
		rdb, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.closers = append(a.closers, func() { rdb.Close() })
		checks["cache"] = rdb
		slog.Info("cache connected")
	}

	boardCfg := challenge.BoardConfig{Location: loc}
	switch cfg.Challenges.Store {
	case "redis":
		boardCfg.Store = challenge.NewRedisStore(rdb)
	case "postgres":
		if boardCfg.Store, err = challenge.NewPostgresStore(db.Pool); err != nil {
			a.close()
			return nil, err
		}
	default:
		boardCfg.Store = challenge.NewMemoryStore()
	}
	if db != nil {
		boardCfg.Events = challenge.NewPostgresEventLogger(db.Pool)
	}

	var progress interface {
		learner.Progress
		learner.Ledger
	}
	if cfg.Progress.Store == "postgres" {
		if progress, err = learner.NewPostgresStore(db.Pool); err != nil {
			a.close()
			return nil, err
		}
	} else {
		progress = learner.NewMemoryStore()
	}
	boardCfg.Sink = progress

	a.store = curriculum.NewStore(newCatalog(cfg.Curriculum),
		curriculum.WithConcurrency(cfg.Curriculum.Concurrency),
		curriculum.WithSourceTimeout(cfg.Curriculum.SourceTimeout),
		curriculum.WithSchemaCheck(cfg.Curriculum.SchemaCheck),
		curriculum.WithAppVersion(version),
	)
	a.registry = challenge.NewRegistry(boardCfg)
	a.handler = httpapi.New(httpapi.Config{
		Curriculum: a.store,
		Challenges: a.registry,
		Progress:   progress,
		Ledger:     progress,
		Checks:     checks,
		Tick:       cfg.Challenges.TickInterval,
	})

	slog.Info("engine wired",
		"challenge_store", cfg.Challenges.Store,
		"progress_store", cfg.Progress.Store,
		"timezone", loc.String(),
	)
	return a, nil
}

// newCatalog serves sources over HTTP when a base URL is configured and from
// the local directory otherwise.
func newCatalog(c config.CurriculumConfig) curriculum.Catalog {
	if c.BaseURL != "" {
		return curriculum.NewHTTPCatalog(c.BaseURL, c.Manifest, nil)
	}
	return curriculum.DirCatalog{Dir: c.Path, Manifest: c.Manifest}
}
