package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/config"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/events"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/migrations"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/sqlstore"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/seed"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/service"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/worker"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	db      *sql.DB
	dialect sqlstore.Dialect

	// Background export of rebalance events
	emitter *events.InMemoryEventEmitter
	queue   *worker.Queue
	pool    *worker.Pool

	taskService service.TaskService
}

// newApplication opens the database, applies migrations when configured,
// starts the export workers and loads every stored task into the ranking
// engine.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, dialect, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		dialect: dialect,
	}

	if cfg.Database.AutoMigrate {
		if err := migrations.Run(ctx, db, dialect.Name, migrations.CommandUp, logger); err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	taskStore := sqlstore.NewTaskStore(db, dialect, logger)
	settingsStore := sqlstore.NewSettingsStore(db, dialect, logger)
	rebalanceStore := sqlstore.NewRebalanceStore(db, dialect, logger)

	app.queue = worker.NewQueue(cfg.Worker.QueueSize, logger)
	app.pool = worker.NewPool(app.queue, worker.PoolConfig{WorkerCount: cfg.Worker.Count}, logger)
	app.pool.SetErrorHandler(func(job worker.Job, err error) {
		logger.Error("background job failed",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"error", err)
	})
	app.pool.Start()

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.Subscribe(worker.NewRebalanceExporter(app.queue, rebalanceStore, logger), events.TypeRebalance)

	app.taskService, err = service.NewTaskService(ctx, service.Dependencies{
		Tasks:      taskStore,
		Settings:   settingsStore,
		Rebalances: rebalanceStore,
		Emitter:    app.emitter,
		DB:         db,
	}, cfg.Ranking.EngineConfig(), logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize task service: %w", err)
	}

	return app, nil
}

// seed creates the tasks listed in a YAML file, skipping ids that already
// exist.
func (app *application) seed(ctx context.Context, path string) error {
	inputs, err := seed.Load(path)
	if err != nil {
		return err
	}
	if _, err := seed.Apply(ctx, app.taskService, inputs, app.logger); err != nil {
		return fmt.Errorf("failed to seed tasks from %s: %w", path, err)
	}
	return nil
}

// runRefresher re-derives every task's factors on the configured interval so
// deadline buckets follow the clock. It returns when ctx is done.
func (app *application) runRefresher(ctx context.Context) {
	interval := time.Duration(app.config.Ranking.RefreshIntervalSeconds) * time.Second
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.taskService.Refresh(ctx); err != nil && ctx.Err() == nil {
				app.logger.Error("Failed to refresh ranking", "error", err)
			}
		}
	}
}

func (app *application) shutdownTimeout() time.Duration {
	return time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.pool != nil {
		app.queue.Close()
		ctx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout())
		if err := app.pool.Stop(ctx); err != nil {
			app.logger.Warn("Worker pool did not drain before shutdown", "error", err)
		}
		cancel()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
