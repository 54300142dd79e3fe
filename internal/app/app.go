package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"ETFRanker/internal/category"
	"ETFRanker/internal/config"
	"ETFRanker/internal/infrastructure/cache"
	"ETFRanker/internal/infrastructure/scheduler"
	"ETFRanker/internal/infrastructure/storage"
	"ETFRanker/internal/logging"
	"ETFRanker/internal/ports"
	"ETFRanker/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	service   *usecase.Service
	scheduler *usecase.Scheduler
	logger    *slog.Logger
	out       io.Writer
	closers   []io.Closer

	lookupOverride ports.RecordLookup
}

// Option customises an Application.
type Option func(*Application)

// WithOutput redirects rendered categories away from stdout.
func WithOutput(w io.Writer) Option {
	return func(a *Application) { a.out = w }
}

// WithLookup replaces the configured store, e.g. for tests.
func WithLookup(lookup ports.RecordLookup) Option {
	return func(a *Application) { a.lookupOverride = lookup }
}

// New validates configuration and wires the store, cache, service and scheduler.
// A malformed category fails here, before anything is rendered.
func New(cfg config.Config, baseLogger *slog.Logger, opts ...Option) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{cfg: cfg, logger: baseLogger.With("component", "app"), out: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}

	categories, err := cfg.BuildCategories()
	if err != nil {
		return nil, fmt.Errorf("build categories: %w", err)
	}
	registry, err := category.NewRegistry(categories...)
	if err != nil {
		return nil, fmt.Errorf("register categories: %w", err)
	}

	lookup := a.lookupOverride
	if lookup == nil {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if lookup, err = a.openStore(); err != nil {
			return nil, err
		}
	}

	cached := cache.NewCachedLookup(cache.LookupDeps{
		Next:   lookup,
		Store:  a.openCache(),
		TTL:    cfg.Cache.TTL,
		Logger: baseLogger.With("component", "cache"),
	})

	a.service = usecase.NewService(usecase.ServiceDeps{
		Registry: registry,
		Lookup:   cached,
		Logger:   baseLogger.With("component", "service"),
	})

	if cfg.Scheduler.Enabled {
		if err := scheduler.ValidateSpec(cfg.Scheduler.CronExpression); err != nil {
			_ = a.Close()
			return nil, err
		}
		a.scheduler = usecase.NewScheduler(usecase.SchedulerDeps{
			Driver:      scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger.With("component", "cron")),
			Service:     a.service,
			Invalidator: cached,
			OnRender: func(views []usecase.CategoryView) {
				if err := a.write(views); err != nil {
					a.logger.Error("write rendered categories", "error", err)
				}
			},
			Logger: baseLogger.With("component", "scheduler"),
		})
	}

	return a, nil
}

func (a *Application) openStore() (ports.RecordLookup, error) {
	switch a.cfg.Store.Kind {
	case config.StoreSnapshot:
		repo, err := storage.LoadSnapshot(a.cfg.Store.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		a.logger.Info("snapshot store loaded", "path", a.cfg.Store.SnapshotPath)
		return repo, nil
	default:
		db, err := storage.OpenPostgres(a.cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		return storage.NewPostgresRepository(db), nil
	}
}

func (a *Application) openCache() cache.Store {
	if a.cfg.Cache.RedisAddr == "" {
		return cache.NewMemoryStore()
	}
	store := cache.NewRedisStore(cache.RedisOptions{
		Addr:     a.cfg.Cache.RedisAddr,
		Password: a.cfg.Cache.RedisPassword,
		DB:       a.cfg.Cache.RedisDB,
	})
	a.closers = append(a.closers, store)
	a.logger.Info("redis cache enabled", "addr", a.cfg.Cache.RedisAddr)
	return store
}

// Run renders every category once, then keeps revalidating on schedule until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Warn("close resources", "error", err)
		}
	}()

	views, err := a.service.RenderAll(ctx)
	if err != nil {
		return err
	}
	if err := a.write(views); err != nil {
		return err
	}

	if a.scheduler == nil {
		return nil
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}

// Close releases the database pool and cache connection.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) write(views []usecase.CategoryView) error {
	enc := json.NewEncoder(a.out)
	if a.cfg.Output.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(views); err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	return nil
}
