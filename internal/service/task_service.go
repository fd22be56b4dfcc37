package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/events"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
)

// TaskService provides task management and ranking operations.
type TaskService interface {
	// CreateTask validates and stores a new task, then re-ranks.
	CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error)

	// GetTask retrieves a task by its ID, completed or not.
	GetTask(ctx context.Context, id string) (*domain.Task, error)

	// ListTasks returns every stored task, oldest first.
	ListTasks(ctx context.Context) ([]domain.Task, error)

	// UpdateTask applies a partial update. Setting the status to complete is
	// treated as a completion.
	UpdateTask(ctx context.Context, id string, input UpdateTaskInput) (*domain.Task, error)

	// CompleteTask marks a task complete, removing it from the ranking.
	CompleteTask(ctx context.Context, id string) (*domain.Task, error)

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id string) error

	// Ranking returns every open task in rank order.
	Ranking(ctx context.Context) []ranking.RankedTask

	// RankingSnapshot returns the ranking and the weights that produced it,
	// read together.
	RankingSnapshot(ctx context.Context) ([]ranking.RankedTask, ranking.HeuristicWeights)

	// NextTask returns the top-ranked task; ok is false when nothing is open.
	NextTask(ctx context.Context) (ranking.RankedTask, bool)

	// ExplainTask returns the factor and score breakdown of a ranked task.
	ExplainTask(ctx context.Context, id string) (ranking.RankedTask, error)

	// LogReorder feeds a manual reorder to the online learner. Learned
	// weights are persisted.
	LogReorder(ctx context.Context, req ranking.ReorderRequest) (ranking.ReorderResult, error)

	// Weights returns the current heuristic weights.
	Weights(ctx context.Context) ranking.HeuristicWeights

	// UpdateWeights applies and persists an explicit weight edit.
	UpdateWeights(ctx context.Context, update ranking.WeightsUpdate) (ranking.HeuristicWeights, error)

	// LearnerState returns the learner configuration and metrics.
	LearnerState(ctx context.Context) ranking.LearnerState

	// UpdateLearnerConfig applies and persists a learner configuration edit.
	UpdateLearnerConfig(ctx context.Context, update ranking.LearnerConfigUpdate) (ranking.LearnerState, error)

	// RebalanceHistory returns up to limit recent rebalance events, newest first.
	RebalanceHistory(ctx context.Context, limit int) ([]ranking.RebalanceEvent, error)

	// Refresh reloads every task from the store and re-derives all factors.
	Refresh(ctx context.Context) error
}

// Dependencies are the collaborators of the task service. Tasks and Settings
// are required.
type Dependencies struct {
	Tasks    store.TaskStore
	Settings store.SettingsStore

	// Rebalances, when set, answers RebalanceHistory from the persisted log.
	// Otherwise the engine's in-memory history is used.
	Rebalances store.RebalanceStore

	// Emitter receives rebalance and reorder events.
	Emitter events.EventEmitter

	// DB, when set, runs each mutation and the task list that follows it in
	// one transaction.
	DB *sql.DB
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	tasks      store.TaskStore
	settings   store.SettingsStore
	rebalances store.RebalanceStore
	emitter    events.EventEmitter
	db         *sql.DB

	engine *ranking.Engine
	clock  func() time.Time
	logger *slog.Logger

	// writeMu orders store writes with the engine updates that follow them.
	writeMu sync.Mutex
}

// NewTaskService creates a TaskService. Persisted weights and learner
// settings override those in engineCfg; every stored task is loaded into the
// engine before the service is returned.
func NewTaskService(
	ctx context.Context,
	deps Dependencies,
	engineCfg ranking.EngineConfig,
	logger *slog.Logger,
) (TaskService, error) {
	if deps.Tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if deps.Settings == nil {
		return nil, domain.NewValidationError("settings", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		tasks:      deps.Tasks,
		settings:   deps.Settings,
		rebalances: deps.Rebalances,
		emitter:    deps.Emitter,
		db:         deps.DB,
		clock:      engineCfg.Clock,
		logger:     logger.With(slog.String("component", "task_service")),
	}
	if s.clock == nil {
		s.clock = time.Now
	}

	cfg, err := s.restoreSettings(ctx, engineCfg)
	if err != nil {
		return nil, err
	}

	upstream := cfg.OnRebalance
	cfg.OnRebalance = func(event ranking.RebalanceEvent) {
		if upstream != nil {
			upstream(event)
		}
		s.emit(events.TypeRebalance, event)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}

	s.engine, err = ranking.NewEngine(cfg)
	if err != nil {
		return nil, NewTaskServiceError("init", "invalid ranking configuration", err)
	}

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("task service ready",
		slog.Int("ranked_tasks", s.engine.Len()),
		slog.Any("weights", s.engine.Weights()))
	return s, nil
}

// restoreSettings overlays persisted weights and learner configuration.
func (s *taskServiceImpl) restoreSettings(ctx context.Context, cfg ranking.EngineConfig) (ranking.EngineConfig, error) {
	learner, err := s.settings.LoadLearnerConfig(ctx)
	switch {
	case err == nil:
		cfg.Learner = learner
		s.logger.Info("restored learner configuration")
	case errors.Is(err, store.ErrSettingNotFound):
		s.logger.Debug("no stored learner configuration, using defaults")
	default:
		return cfg, NewTaskServiceError("init", "failed to load learner configuration", err)
	}

	weights, err := s.settings.LoadWeights(ctx)
	switch {
	case err == nil:
		cfg.Weights = weights
		s.logger.Info("restored heuristic weights", slog.Any("weights", weights))
	case errors.Is(err, store.ErrSettingNotFound):
		s.logger.Debug("no stored heuristic weights, using defaults")
	default:
		return cfg, NewTaskServiceError("init", "failed to load heuristic weights", err)
	}

	if clamped := cfg.Weights.Clamp(cfg.Learner.MinWeight, cfg.Learner.MaxWeight); clamped != cfg.Weights {
		s.logger.Warn("stored weights outside learner bounds, clamping",
			slog.Any("weights", cfg.Weights),
			slog.Any("clamped", clamped))
		cfg.Weights = clamped
	}
	return cfg, nil
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task := input.ToTask(s.clock().UTC())
	if err := task.Validate(); err != nil {
		log.Debug("rejected invalid task", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	err := s.mutate(ctx, task.ID, func(ctx context.Context, tasks store.TaskStore) (ranking.MutationKind, error) {
		return ranking.MutationTaskCreated, tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	log.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("priority", string(task.Priority)))
	return task, nil
}

// GetTask implements TaskService.GetTask
func (s *taskServiceImpl) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// ListTasks implements TaskService.ListTasks
func (s *taskServiceImpl) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.tasks.List(ctx)
}

// UpdateTask implements TaskService.UpdateTask
func (s *taskServiceImpl) UpdateTask(ctx context.Context, id string, input UpdateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated domain.Task
	err := s.mutate(ctx, id, func(ctx context.Context, tasks store.TaskStore) (ranking.MutationKind, error) {
		current, err := tasks.GetByID(ctx, id)
		if err != nil {
			return "", err
		}

		next, completed := input.applyTo(*current, s.clock().UTC())
		if err := next.Validate(); err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		if err := tasks.Update(ctx, &next); err != nil {
			return "", err
		}

		updated = next
		if completed {
			return ranking.MutationTaskCompleted, nil
		}
		return ranking.MutationTaskUpdated, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task updated", slog.String("task_id", id), slog.String("status", string(updated.Status)))
	return &updated, nil
}

// CompleteTask implements TaskService.CompleteTask
func (s *taskServiceImpl) CompleteTask(ctx context.Context, id string) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var completed *domain.Task
	err := s.mutate(ctx, id, func(ctx context.Context, tasks store.TaskStore) (ranking.MutationKind, error) {
		task, err := tasks.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		if task.IsComplete() {
			return "", fmt.Errorf("%w: %s", ErrTaskCompleted, id)
		}

		task.Complete(s.clock().UTC())
		if err := tasks.Update(ctx, task); err != nil {
			return "", err
		}
		completed = task
		return ranking.MutationTaskCompleted, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task completed", slog.String("task_id", id))
	return completed, nil
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id string) error {
	err := s.mutate(ctx, id, func(ctx context.Context, tasks store.TaskStore) (ranking.MutationKind, error) {
		return ranking.MutationTaskDeleted, tasks.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("task deleted", slog.String("task_id", id))
	return nil
}

// Ranking implements TaskService.Ranking
func (s *taskServiceImpl) Ranking(_ context.Context) []ranking.RankedTask {
	return s.engine.Ranked()
}

// RankingSnapshot implements TaskService.RankingSnapshot
func (s *taskServiceImpl) RankingSnapshot(_ context.Context) ([]ranking.RankedTask, ranking.HeuristicWeights) {
	return s.engine.Snapshot()
}

// NextTask implements TaskService.NextTask
func (s *taskServiceImpl) NextTask(_ context.Context) (ranking.RankedTask, bool) {
	return s.engine.Next()
}

// ExplainTask implements TaskService.ExplainTask
func (s *taskServiceImpl) ExplainTask(_ context.Context, id string) (ranking.RankedTask, error) {
	return s.engine.Explain(id)
}

// LogReorder implements TaskService.LogReorder. A failure to persist learned
// weights is logged, not returned: the reorder itself has been applied.
func (s *taskServiceImpl) LogReorder(ctx context.Context, req ranking.ReorderRequest) (ranking.ReorderResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.engine.LogReorder(req)
	if err != nil {
		return result, err
	}

	if result.WeightUpdateApplied {
		if err := s.settings.SaveWeights(ctx, result.Weights); err != nil {
			log.Error("failed to persist learned weights",
				slog.String("error", err.Error()),
				slog.String("task_id", req.TaskID))
		}
	}

	s.emit(events.TypeReorder, result.Event)

	log.Info("reorder logged",
		slog.String("task_id", req.TaskID),
		slog.Int("from_rank", req.FromRank),
		slog.Int("to_rank", req.ToRank),
		slog.Int("pairs", result.PairsGenerated),
		slog.Bool("weights_updated", result.WeightUpdateApplied))
	return result, nil
}

// Weights implements TaskService.Weights
func (s *taskServiceImpl) Weights(_ context.Context) ranking.HeuristicWeights {
	return s.engine.Weights()
}

// UpdateWeights implements TaskService.UpdateWeights. The previous weights
// are restored when they cannot be persisted.
func (s *taskServiceImpl) UpdateWeights(ctx context.Context, update ranking.WeightsUpdate) (ranking.HeuristicWeights, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	previous := s.engine.Weights()
	weights, _, err := s.engine.SetWeights(update)
	if err != nil {
		return previous, err
	}

	if err := s.settings.SaveWeights(ctx, weights); err != nil {
		s.restoreWeights(ctx, previous)
		return previous, NewTaskServiceError("update_weights", "failed to persist weights", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("heuristic weights updated", slog.Any("weights", weights))
	return weights, nil
}

// LearnerState implements TaskService.LearnerState
func (s *taskServiceImpl) LearnerState(_ context.Context) ranking.LearnerState {
	return s.engine.LearnerState()
}

// UpdateLearnerConfig implements TaskService.UpdateLearnerConfig. The
// configuration and the possibly clamped weights are saved together.
func (s *taskServiceImpl) UpdateLearnerConfig(
	ctx context.Context,
	update ranking.LearnerConfigUpdate,
) (ranking.LearnerState, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	previousState := s.engine.LearnerState()
	previousWeights := s.engine.Weights()

	state, err := s.engine.UpdateLearnerConfig(update)
	if err != nil {
		return previousState, err
	}

	weights := s.engine.Weights()
	err = s.inSettingsTx(ctx, func(ctx context.Context, settings store.SettingsStore) error {
		if err := settings.SaveLearnerConfig(ctx, state.Config); err != nil {
			return err
		}
		if weights != previousWeights {
			return settings.SaveWeights(ctx, weights)
		}
		return nil
	})
	if err != nil {
		s.restoreLearner(ctx, previousState.Config, previousWeights)
		return previousState, NewTaskServiceError("update_learner_config", "failed to persist learner configuration", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("learner configuration updated",
		slog.Bool("enabled", state.Config.Enabled),
		slog.Float64("learning_rate", state.Config.LearningRate))
	return state, nil
}

// RebalanceHistory implements TaskService.RebalanceHistory
func (s *taskServiceImpl) RebalanceHistory(ctx context.Context, limit int) ([]ranking.RebalanceEvent, error) {
	if s.rebalances == nil {
		return s.engine.RebalanceHistory(limit), nil
	}
	history, err := s.rebalances.ListRecent(ctx, limit)
	if err != nil {
		return nil, NewTaskServiceError("rebalance_history", "failed to list rebalance events", err)
	}
	return history, nil
}

// Refresh implements TaskService.Refresh
func (s *taskServiceImpl) Refresh(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return NewTaskServiceError("refresh", "failed to list tasks", err)
	}
	if err := s.engine.Refresh(tasks); err != nil {
		return NewTaskServiceError("refresh", "failed to rank tasks", err)
	}
	return nil
}

// mutateFn performs one store write and names the mutation it made.
type mutateFn func(ctx context.Context, tasks store.TaskStore) (ranking.MutationKind, error)

// mutate runs fn, re-reads the full task set in the same transaction and
// hands it to the engine.
func (s *taskServiceImpl) mutate(ctx context.Context, taskID string, fn mutateFn) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		kind     ranking.MutationKind
		snapshot []domain.Task
	)
	err := s.inTx(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		var err error
		if kind, err = fn(ctx, tasks); err != nil {
			return err
		}
		snapshot, err = tasks.List(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if _, err := s.engine.Apply(kind, taskID, snapshot); err != nil {
		// The store is ahead of the engine; rebuild from the snapshot.
		logger.FromContextOrDefault(ctx, s.logger).Error("incremental re-rank failed, reloading",
			slog.String("task_id", taskID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		if err := s.engine.Load(snapshot); err != nil {
			return NewTaskServiceError(string(kind), "failed to rank tasks", err)
		}
	}
	return nil
}

func (s *taskServiceImpl) inTx(ctx context.Context, fn func(ctx context.Context, tasks store.TaskStore) error) error {
	if s.db == nil {
		return fn(ctx, s.tasks)
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.tasks.WithTx(tx))
	})
}

func (s *taskServiceImpl) inSettingsTx(
	ctx context.Context,
	fn func(ctx context.Context, settings store.SettingsStore) error,
) error {
	if s.db == nil {
		return fn(ctx, s.settings)
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.settings.WithTx(tx))
	})
}

func (s *taskServiceImpl) restoreWeights(ctx context.Context, weights ranking.HeuristicWeights) {
	if err := s.engine.RestoreWeights(weights); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to restore previous weights",
			slog.String("error", err.Error()))
	}
}

func (s *taskServiceImpl) restoreLearner(ctx context.Context, cfg ranking.LearnerConfig, weights ranking.HeuristicWeights) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if _, err := s.engine.UpdateLearnerConfig(learnerUpdateOf(cfg)); err != nil {
		log.Error("failed to restore previous learner configuration", slog.String("error", err.Error()))
		return
	}
	s.restoreWeights(ctx, weights)
}

// emit publishes payload on the emitter, if one is configured. Failures are
// logged; events never fail the operation that produced them.
func (s *taskServiceImpl) emit(eventType string, payload any) {
	if s.emitter == nil {
		return
	}
	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		s.logger.Error("failed to encode event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(context.Background(), event); err != nil {
		s.logger.Warn("event handler failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}

func learnerUpdateOf(c ranking.LearnerConfig) ranking.LearnerConfigUpdate {
	return ranking.LearnerConfigUpdate{
		Enabled:         &c.Enabled,
		LearningRate:    &c.LearningRate,
		Momentum:        &c.Momentum,
		MaxWeightChange: &c.MaxWeightChange,
		MinWeight:       &c.MinWeight,
		MaxWeight:       &c.MaxWeight,
	}
}
