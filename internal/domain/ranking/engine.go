package ranking

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/google/uuid"
)

// EngineConfig configures a ranking Engine.
type EngineConfig struct {
	Weights            HeuristicWeights
	Learner            LearnerConfig
	RebalanceThreshold int
	RebalanceHistory   int

	// Clock defaults to time.Now.
	Clock func() time.Time

	// OnRebalance receives every recorded rebalance event. It is called after
	// the engine lock is released.
	OnRebalance func(RebalanceEvent)

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// DefaultEngineConfig returns default weights, learner and observer settings.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights:            DefaultWeights(),
		Learner:            DefaultLearnerConfig(),
		RebalanceThreshold: DefaultRebalanceThreshold,
		RebalanceHistory:   DefaultRebalanceHistory,
	}
}

// RankedTask is one row of the ranked list.
type RankedTask struct {
	Rank      int            `json:"rank"`
	Task      domain.Task    `json:"task"`
	Score     float64        `json:"score"`
	Factors   TaskFactors    `json:"factors"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// ReorderRequest describes a manual drag of TaskID from FromRank to ToRank
// (1-based). View is the ranked list of task IDs the user saw; when empty the
// engine's current ranking is used.
type ReorderRequest struct {
	TaskID   string
	FromRank int
	ToRank   int
	View     []string
}

// ReorderEvent is the interpreted form of a reorder request.
type ReorderEvent struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	FromRank   int       `json:"from_rank"`
	ToRank     int       `json:"to_rank"`
	Direction  Direction `json:"direction"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ReorderResult reports what a logged reorder did.
type ReorderResult struct {
	Event               ReorderEvent         `json:"event"`
	Pairs               []PairwisePreference `json:"pairs"`
	PairsGenerated      int                  `json:"pairs_generated"`
	Loss                float64              `json:"loss"`
	WeightUpdateApplied bool                 `json:"weight_update_applied"`
	AppliedDelta        *HeuristicWeights    `json:"applied_delta,omitempty"`
	Weights             HeuristicWeights     `json:"weights"`
	Rebalance           *RebalanceEvent      `json:"rebalance,omitempty"`
}

// Engine owns the heap, the current task snapshot, the heuristic weights and
// the online learner. All of them form one critical section guarded by mu, so
// an Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	weights  HeuristicWeights
	learner  *OnlineLearner
	observer *RebalanceObserver
	queue    *IndexedHeap
	tasks    map[string]domain.Task
	factors  map[string]TaskFactors

	clock       func() time.Time
	onRebalance func(RebalanceEvent)
	logger      *slog.Logger
}

// NewEngine creates an empty engine. Weights outside the learner bounds are
// rejected.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	learner, err := NewOnlineLearner(cfg.Learner)
	if err != nil {
		return nil, err
	}
	if err := cfg.Weights.Validate(cfg.Learner.MinWeight, cfg.Learner.MaxWeight); err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Engine{
		weights:     cfg.Weights,
		learner:     learner,
		observer:    NewRebalanceObserver(cfg.RebalanceThreshold, cfg.RebalanceHistory),
		queue:       NewIndexedHeap(),
		tasks:       map[string]domain.Task{},
		factors:     map[string]TaskFactors{},
		clock:       clock,
		onRebalance: cfg.OnRebalance,
		logger:      logger.With(slog.String("component", "ranking_engine")),
	}, nil
}

// Load replaces the task snapshot and ranks it from scratch. No rebalance
// event is recorded.
func (e *Engine) Load(tasks []domain.Task) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot, err := indexTasks(tasks)
	if err != nil {
		return err
	}
	e.tasks = snapshot
	e.recomputeAll()
	return nil
}

// Refresh recomputes every factor against the current clock, for example so
// deadlines move between time buckets. No rebalance event is recorded.
func (e *Engine) Refresh(tasks []domain.Task) error {
	return e.Load(tasks)
}

// Apply feeds the task set after a mutation of taskID. Creates, deletes,
// completions, weight changes and updates that alter dependency edges
// recompute every task; other updates rescore only the touched task.
func (e *Engine) Apply(kind MutationKind, taskID string, tasks []domain.Task) (*RebalanceEvent, error) {
	e.mu.Lock()
	event, err := e.apply(kind, taskID, tasks)
	e.mu.Unlock()

	e.publish(event)
	return event, err
}

func (e *Engine) apply(kind MutationKind, taskID string, tasks []domain.Task) (*RebalanceEvent, error) {
	snapshot, err := indexTasks(tasks)
	if err != nil {
		return nil, err
	}

	before := snapshotOf(e.queue.ToSortedArray())

	switch kind {
	case MutationTaskUpdated:
		next, ok := snapshot[taskID]
		if !ok {
			return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}
		prev, known := e.tasks[taskID]
		e.tasks = snapshot
		if known && prev.EdgesEqual(&next) && prev.IsComplete() == next.IsComplete() {
			if err := e.rescoreOne(next); err != nil {
				return nil, err
			}
		} else {
			e.recomputeAll()
		}
	case MutationTaskCreated, MutationTaskDeleted, MutationTaskCompleted,
		MutationWeightsChanged, MutationWeightsLearned:
		e.tasks = snapshot
		e.recomputeAll()
	default:
		return nil, fmt.Errorf("%w: unknown mutation kind %q", ErrInvalidConfig, kind)
	}

	return e.observe(kind, taskID, before), nil
}

// Ranked returns every active task in rank order.
func (e *Engine) Ranked() []RankedTask {
	e.mu.Lock()
	defer e.mu.Unlock()

	sorted := e.queue.ToSortedArray()
	out := make([]RankedTask, len(sorted))
	for i, item := range sorted {
		out[i] = e.rankedTask(i+1, item)
	}
	return out
}

// Snapshot returns the ranked list together with the weights that produced
// it, read under one lock.
func (e *Engine) Snapshot() ([]RankedTask, HeuristicWeights) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sorted := e.queue.ToSortedArray()
	out := make([]RankedTask, len(sorted))
	for i, item := range sorted {
		out[i] = e.rankedTask(i+1, item)
	}
	return out, e.weights
}

// Next returns the highest priority task, or false when nothing is ranked.
func (e *Engine) Next() (RankedTask, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, ok := e.queue.Peek()
	if !ok {
		return RankedTask{}, false
	}
	return e.rankedTask(1, item), true
}

// Explain returns the ranked row of a single task with its score breakdown.
func (e *Engine) Explain(id string) (RankedTask, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.queue.Has(id) {
		return RankedTask{}, fmt.Errorf("%w: task %s is not ranked", ErrNotFound, id)
	}
	for i, item := range e.queue.ToSortedArray() {
		if item.ID == id {
			return e.rankedTask(i+1, item), nil
		}
	}
	return RankedTask{}, fmt.Errorf("%w: task %s is not ranked", ErrNotFound, id)
}

// LogReorder interprets a manual reorder, feeds the resulting pairwise
// preferences to the learner and, when the weights move, rescores every task.
func (e *Engine) LogReorder(req ReorderRequest) (ReorderResult, error) {
	e.mu.Lock()
	result, err := e.logReorder(req)
	e.mu.Unlock()

	if err == nil {
		e.publish(result.Rebalance)
	}
	return result, err
}

func (e *Engine) logReorder(req ReorderRequest) (ReorderResult, error) {
	if !e.queue.Has(req.TaskID) {
		return ReorderResult{}, fmt.Errorf("%w: task %s is not ranked", ErrNotFound, req.TaskID)
	}

	view, err := e.view(req.View)
	if err != nil {
		return ReorderResult{}, err
	}

	pairs, direction, err := GeneratePairs(view, req.FromRank, req.ToRank)
	if err != nil {
		return ReorderResult{}, err
	}
	if moved := view[req.FromRank-1].ID; moved != req.TaskID {
		return ReorderResult{}, fmt.Errorf("%w: rank %d holds %s, not %s",
			ErrInvalidRange, req.FromRank, moved, req.TaskID)
	}

	outcome := e.learner.Learn(pairs, e.weights)
	result := ReorderResult{
		Event: ReorderEvent{
			ID:         uuid.NewString(),
			TaskID:     req.TaskID,
			FromRank:   req.FromRank,
			ToRank:     req.ToRank,
			Direction:  direction,
			OccurredAt: e.clock(),
		},
		Pairs:          pairs,
		PairsGenerated: len(pairs),
		Loss:           outcome.Loss,
		Weights:        e.weights,
	}

	e.logger.Debug("reorder observed",
		slog.String("task_id", req.TaskID),
		slog.String("direction", string(direction)),
		slog.Int("pairs", len(pairs)),
		slog.Int("correct", outcome.Correct),
		slog.Float64("loss", outcome.Loss),
		slog.Bool("applied", outcome.Applied))

	if !outcome.Applied {
		return result, nil
	}

	before := snapshotOf(e.queue.ToSortedArray())
	e.weights = outcome.Weights
	e.rescoreAll()

	delta := outcome.Delta
	result.WeightUpdateApplied = true
	result.AppliedDelta = &delta
	result.Weights = e.weights
	result.Rebalance = e.observe(MutationWeightsLearned, req.TaskID, before)

	e.logger.Info("heuristic weights learned", slog.Any("weights", e.weights))
	return result, nil
}

// Weights returns the current heuristic weights.
func (e *Engine) Weights() HeuristicWeights {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.weights
}

// SetWeights applies an explicit weight edit and rescores every task. Values
// outside the learner's weight bounds are rejected.
func (e *Engine) SetWeights(update WeightsUpdate) (HeuristicWeights, *RebalanceEvent, error) {
	e.mu.Lock()
	weights, event, err := e.setWeights(update)
	e.mu.Unlock()

	e.publish(event)
	return weights, event, err
}

func (e *Engine) setWeights(update WeightsUpdate) (HeuristicWeights, *RebalanceEvent, error) {
	cfg := e.learner.Config()
	next := update.ApplyTo(e.weights)
	if err := next.Validate(cfg.MinWeight, cfg.MaxWeight); err != nil {
		return e.weights, nil, err
	}

	before := snapshotOf(e.queue.ToSortedArray())
	e.weights = next
	e.rescoreAll()
	e.logger.Info("heuristic weights set", slog.Any("weights", e.weights))

	return e.weights, e.observe(MutationWeightsChanged, "", before), nil
}

// RestoreWeights puts back previously held weights, for example after a
// failed persist, and rescores every task. No rebalance is recorded or
// published for the restore.
func (e *Engine) RestoreWeights(w HeuristicWeights) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.learner.Config()
	if err := w.Validate(cfg.MinWeight, cfg.MaxWeight); err != nil {
		return err
	}
	e.weights = w
	e.rescoreAll()
	e.logger.Info("heuristic weights restored", slog.Any("weights", e.weights))
	return nil
}

// LearnerState returns a snapshot of the online learner.
func (e *Engine) LearnerState() LearnerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.learner.State()
}

// UpdateLearnerConfig edits the learner configuration. When new weight bounds
// exclude current weights, the weights are clamped and every task rescored.
func (e *Engine) UpdateLearnerConfig(update LearnerConfigUpdate) (LearnerState, error) {
	e.mu.Lock()
	state, event, err := e.updateLearnerConfig(update)
	e.mu.Unlock()

	e.publish(event)
	return state, err
}

func (e *Engine) updateLearnerConfig(update LearnerConfigUpdate) (LearnerState, *RebalanceEvent, error) {
	state, err := e.learner.UpdateConfig(update)
	if err != nil {
		return state, nil, err
	}

	clamped := e.weights.Clamp(state.Config.MinWeight, state.Config.MaxWeight)
	if clamped == e.weights {
		return state, nil, nil
	}

	before := snapshotOf(e.queue.ToSortedArray())
	e.weights = clamped
	e.rescoreAll()
	e.logger.Info("heuristic weights clamped to new bounds", slog.Any("weights", e.weights))
	return state, e.observe(MutationWeightsChanged, "", before), nil
}

// RebalanceHistory returns up to limit recent rebalance events, newest first.
func (e *Engine) RebalanceHistory(limit int) []RebalanceEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.observer.History(limit)
}

// Len returns the number of ranked tasks.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len()
}

func indexTasks(tasks []domain.Task) (map[string]domain.Task, error) {
	snapshot := make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		if _, dup := snapshot[t.ID]; dup {
			return nil, fmt.Errorf("%w: task %s appears twice", ErrDuplicateID, t.ID)
		}
		snapshot[t.ID] = t
	}
	return snapshot, nil
}

// sortedTasks returns the held tasks ordered by id.
func (e *Engine) sortedTasks() []domain.Task {
	all := make([]domain.Task, 0, len(e.tasks))
	for _, id := range slices.Sorted(maps.Keys(e.tasks)) {
		all = append(all, e.tasks[id])
	}
	return all
}

// recomputeAll derives factors for every active task and rebuilds the heap.
func (e *Engine) recomputeAll() {
	all := e.sortedTasks()
	graph := newTaskGraph(all)
	now := e.clock()

	e.factors = make(map[string]TaskFactors, len(all))
	items := make([]RankedItem, 0, len(all))
	for i := range all {
		t := &all[i]
		if t.IsComplete() {
			continue
		}
		f := graph.factors(t, now)
		e.factors[t.ID] = f
		items = append(items, RankedItem{ID: t.ID, Score: ComputeScore(f, t.Priority, e.weights)})
	}

	// IDs are unique by construction of e.tasks.
	e.queue, _ = NewIndexedHeapFrom(items)
}

// rescoreOne recomputes a single task whose edges did not change.
func (e *Engine) rescoreOne(task domain.Task) error {
	f := ComputeFactors(task, e.sortedTasks(), e.clock())
	item := RankedItem{ID: task.ID, Score: ComputeScore(f, task.Priority, e.weights)}

	if task.IsComplete() {
		delete(e.factors, task.ID)
		if e.queue.Has(task.ID) {
			return e.queue.Remove(task.ID)
		}
		return nil
	}

	e.factors[task.ID] = f
	if e.queue.Has(task.ID) {
		return e.queue.Update(task.ID, item)
	}
	return e.queue.Push(item)
}

// rescoreAll applies the current weights to the cached factors.
func (e *Engine) rescoreAll() {
	e.queue.RescoreAll(func(item RankedItem) float64 {
		return ComputeScore(e.factors[item.ID], e.tasks[item.ID].Priority, e.weights)
	})
}

// view resolves the ranked list a reorder refers to.
func (e *Engine) view(ids []string) ([]ScoredTask, error) {
	if len(ids) == 0 {
		sorted := e.queue.ToSortedArray()
		view := make([]ScoredTask, len(sorted))
		for i, item := range sorted {
			view[i] = ScoredTask{ID: item.ID, Score: item.Score, Factors: e.factors[item.ID]}
		}
		return view, nil
	}

	seen := make(map[string]bool, len(ids))
	view := make([]ScoredTask, len(ids))
	for i, id := range ids {
		item, ok := e.queue.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: task %s in view is not ranked", ErrNotFound, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: task %s appears twice in view", ErrDuplicateID, id)
		}
		seen[id] = true
		view[i] = ScoredTask{ID: id, Score: item.Score, Factors: e.factors[id]}
	}
	return view, nil
}

func (e *Engine) rankedTask(rank int, item RankedItem) RankedTask {
	task := e.tasks[item.ID]
	f := e.factors[item.ID]
	return RankedTask{
		Rank:      rank,
		Task:      task.Clone(),
		Score:     item.Score,
		Factors:   f,
		Breakdown: Explain(f, task.Priority, e.weights),
	}
}

func (e *Engine) observe(kind MutationKind, triggerID string, before rankSnapshot) *RebalanceEvent {
	event, ok := e.observer.Observe(kind, triggerID, before, snapshotOf(e.queue.ToSortedArray()), e.clock())
	if !ok {
		return nil
	}
	e.logger.Debug("rebalance recorded",
		slog.String("kind", string(kind)),
		slog.Int("changes", len(event.Changes)))
	return &event
}

func (e *Engine) publish(event *RebalanceEvent) {
	if event != nil && e.onRebalance != nil {
		e.onRebalance(*event)
	}
}
