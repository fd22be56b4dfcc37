package ranking

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Rebalance defaults
const (
	DefaultRebalanceThreshold = 2
	DefaultRebalanceHistory   = 100
)

// MutationKind names what caused a ranking to be recomputed.
type MutationKind string

// Mutation kinds
const (
	MutationTaskCreated    MutationKind = "task_created"
	MutationTaskUpdated    MutationKind = "task_updated"
	MutationTaskDeleted    MutationKind = "task_deleted"
	MutationTaskCompleted  MutationKind = "task_completed"
	MutationWeightsChanged MutationKind = "weights_changed"
	MutationWeightsLearned MutationKind = "weights_learned"
)

// RankChange is one task's move between two rankings.
type RankChange struct {
	TaskID      string  `json:"task_id"`
	RankBefore  int     `json:"rank_before"`
	RankAfter   int     `json:"rank_after"`
	ScoreBefore float64 `json:"score_before"`
	ScoreAfter  float64 `json:"score_after"`
}

// Shift is positive when the task moved toward the top.
func (c RankChange) Shift() int {
	return c.RankBefore - c.RankAfter
}

// RebalanceEvent records the significant rank moves caused by one mutation.
type RebalanceEvent struct {
	ID         string       `json:"id"`
	Kind       MutationKind `json:"kind"`
	TriggerID  string       `json:"trigger_id,omitempty"`
	Changes    []RankChange `json:"changes"`
	OccurredAt time.Time    `json:"occurred_at"`
}

type rankEntry struct {
	rank  int
	score float64
}

// rankSnapshot maps task ID to its 1-based rank and score.
type rankSnapshot map[string]rankEntry

func snapshotOf(sorted []RankedItem) rankSnapshot {
	s := make(rankSnapshot, len(sorted))
	for i, item := range sorted {
		s[item.ID] = rankEntry{rank: i + 1, score: item.Score}
	}
	return s
}

// RebalanceObserver compares rankings before and after a mutation and keeps a
// bounded history of events where some task moved more than threshold ranks.
// Tasks entering or leaving the ranking are not reported.
type RebalanceObserver struct {
	threshold int
	limit     int
	history   []RebalanceEvent
}

// NewRebalanceObserver creates an observer. Non-positive arguments fall back
// to the defaults.
func NewRebalanceObserver(threshold, limit int) *RebalanceObserver {
	if threshold <= 0 {
		threshold = DefaultRebalanceThreshold
	}
	if limit <= 0 {
		limit = DefaultRebalanceHistory
	}
	return &RebalanceObserver{threshold: threshold, limit: limit}
}

// Observe diffs two snapshots. It returns false when nothing moved far enough.
func (o *RebalanceObserver) Observe(
	kind MutationKind,
	triggerID string,
	before, after rankSnapshot,
	at time.Time,
) (RebalanceEvent, bool) {
	var changes []RankChange
	for id, b := range before {
		a, ok := after[id]
		if !ok {
			continue
		}
		shift := b.rank - a.rank
		if shift > o.threshold || -shift > o.threshold {
			changes = append(changes, RankChange{
				TaskID:      id,
				RankBefore:  b.rank,
				RankAfter:   a.rank,
				ScoreBefore: b.score,
				ScoreAfter:  a.score,
			})
		}
	}
	if len(changes) == 0 {
		return RebalanceEvent{}, false
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].RankAfter < changes[j].RankAfter
	})

	event := RebalanceEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		TriggerID:  triggerID,
		Changes:    changes,
		OccurredAt: at,
	}

	o.history = append(o.history, event)
	if over := len(o.history) - o.limit; over > 0 {
		o.history = append(o.history[:0:0], o.history[over:]...)
	}
	return event, true
}

// History returns up to n of the most recent events, newest first. n <= 0
// returns all retained events.
func (o *RebalanceObserver) History(n int) []RebalanceEvent {
	if n <= 0 || n > len(o.history) {
		n = len(o.history)
	}
	out := make([]RebalanceEvent, 0, n)
	for i := len(o.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, o.history[i])
	}
	return out
}
