// Package sqlstoretest holds the store behaviour tests shared by every
// sqlstore dialect. Driver packages call Run from their own tests against a
// migrated database.
package sqlstoretest

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/sqlstore"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// Run exercises the task, settings and rebalance stores against db. The
// database must already be migrated; Run empties every table between cases.
func Run(t *testing.T, db *sql.DB, dialect sqlstore.Dialect) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, db *sql.DB, d sqlstore.Dialect)
	}{
		{"TaskRoundTrip", testTaskRoundTrip},
		{"TaskCreateErrors", testTaskCreateErrors},
		{"TaskUpdateAndDelete", testTaskUpdateAndDelete},
		{"TaskListOrder", testTaskListOrder},
		{"TaskTransactionRollback", testTaskTransactionRollback},
		{"Settings", testSettings},
		{"RebalanceEvents", testRebalanceEvents},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			truncate(t, db)
			tc.fn(t, db, dialect)
		})
	}
}

func truncate(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range []string{"tasks", "ranking_settings", "rebalance_events"} {
		_, err := db.Exec("DELETE FROM " + table)
		require.NoError(t, err, "failed to empty %s", table)
	}
}

func fullTask(id string, created time.Time) *domain.Task {
	deadline := created.Add(72 * time.Hour)
	depth := 2.0
	return &domain.Task{
		ID:           id,
		Project:      "platform",
		Title:        "Ship " + id,
		Description:  "long form",
		Priority:     domain.PriorityP1,
		Status:       domain.StatusInProgress,
		Deadline:     &deadline,
		Effort:       domain.EffortMedium,
		Blocking:     "release",
		Dependencies: []string{"a", "b"},
		Overrides:    &domain.FactorOverrides{DependencyDepth: &depth},
		Notes:        "notes",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func testTaskRoundTrip(t *testing.T, db *sql.DB, d sqlstore.Dialect) {
	ctx := context.Background()
	tasks := sqlstore.NewTaskStore(db, d, nil)

	want := fullTask("t-1", baseTime)
	require.NoError(t, tasks.Create(ctx, want))

	got, err := tasks.GetByID(ctx, "t-1")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Project, got.Project)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Priority, got.Priority)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Effort, got.Effort)
	assert.Equal(t, want.Blocking, got.Blocking)
	assert.Equal(t, want.Dependencies, got.Dependencies)
	assert.Equal(t, want.Notes, got.Notes)
	require.NotNil(t, got.Overrides)
	require.NotNil(t, got.Overrides.DependencyDepth)
	assert.Equal(t, 2.0, *got.Overrides.DependencyDepth)
	assert.Nil(t, got.Overrides.BlockingCount)
	require.NotNil(t, got.Deadline)
	assert.WithinDuration(t, *want.Deadline, *got.Deadline, time.Millisecond)
	assert.WithinDuration(t, want.CreatedAt, got.CreatedAt, time.Millisecond)
	assert.Nil(t, got.CompletedAt)

	bare := &domain.Task{
		ID: "t-2", Title: "bare", Priority: domain.PriorityP3, Status: domain.StatusNotStarted,
		CreatedAt: baseTime, UpdatedAt: baseTime,
	}
	require.NoError(t, tasks.Create(ctx, bare))
	got, err = tasks.GetByID(ctx, "t-2")
	require.NoError(t, err)
	assert.Nil(t, got.Deadline)
	assert.Nil(t, got.Dependencies)
	assert.Nil(t, got.Overrides)
	assert.Equal(t, domain.EffortNone, got.Effort)

	_, err = tasks.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func testTaskCreateErrors(t *testing.T, db *sql.DB, d sqlstore.Dialect) {
	ctx := context.Background()
	tasks := sqlstore.NewTaskStore(db, d, nil)

	require.NoError(t, tasks.Create(ctx, fullTask("dup", baseTime)))
	err := tasks.Create(ctx, fullTask("dup", baseTime))
	assert.ErrorIs(t, err, store.ErrTaskExists)
	assert.True(t, store.IsDuplicateError(err))

	invalid := fullTask("bad", baseTime)
	invalid.Title = ""
	err = tasks.Create(ctx, invalid)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.ErrorIs(t, err, domain.ErrTaskTitleEmpty)
}

func testTaskUpdateAndDelete(t *testing.T, db *sql.DB, d sqlstore.Dialect) {
	ctx := context.Background()
	tasks := sqlstore.NewTaskStore(db, d, nil)

	task := fullTask("u-1", baseTime)
	require.NoError(t, tasks.Create(ctx, task))

	task.Title = "renamed"
	task.Dependencies = nil
	task.Overrides = nil
	task.Complete(baseTime.Add(time.Hour))
	require.NoError(t, tasks.Update(ctx, task))

	got, err := tasks.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, domain.StatusComplete, got.Status)
	assert.Nil(t, got.Dependencies)
	assert.Nil(t, got.Overrides)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, baseTime.Add(time.Hour), *got.CompletedAt, time.Millisecond)

	ghost := fullTask("ghost", baseTime)
	assert.ErrorIs(t, tasks.Update(ctx, ghost), store.ErrTaskNotFound)

	require.NoError(t, tasks.Delete(ctx, "u-1"))
	assert.ErrorIs(t, tasks.Delete(ctx, "u-1"), store.ErrTaskNotFound)
	_, err = tasks.GetByID(ctx, "u-1")
	assert.True(t, store.IsNotFoundError(err))
}

func testTaskListOrder(t *testing.T, db *sql.DB, d sqlstore.Dialect) {
	ctx := context.Background()
	tasks := sqlstore.NewTaskStore(db, d, nil)

	list, err := tasks.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, tasks.Create(ctx, fullTask(id, baseTime.Add(time.Duration(i)*time.Minute))))
	}

	list, err = tasks.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func testTaskTransactionRollback(t *testing.T, db *sql.DB, d sqlstore.Dialect) {
	ctx := context.Background()
	tasks := sqlstore.NewTaskStore(db, d, nil)
	boom := errors.New("boom")

	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if err := tasks.WithTx(tx).Create(ctx, fullTask("tx-1", baseTime)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = tasks.GetByID(ctx, "tx-1")
	assert.ErrorIs(t, err, store.ErrTaskNotFound, "rolled back insert must not be visible")

	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return tasks.WithTx(tx).Create(ctx, fullTask("tx-2", baseTime))
	})
	require.NoError(t, err)
	_, err = tasks.GetByID(ctx, "tx-2")
	assert.NoError(t, err)
}

func testSettings(t *testing.T, db *sql.DB, d sqlstore.Dialect) {
	ctx := context.Background()
	settings := sqlstore.NewSettingsStore(db, d, nil)

	_, err := settings.LoadWeights(ctx)
	assert.ErrorIs(t, err, store.ErrSettingNotFound)
	_, err = settings.LoadLearnerConfig(ctx)
	assert.ErrorIs(t, err, store.ErrSettingNotFound)

	w := ranking.DefaultWeights()
	w.Blocking = 12.25
	require.NoError(t, settings.SaveWeights(ctx, w))
	w.EffortValue = 3.5
	require.NoError(t, settings.SaveWeights(ctx, w), "second save overwrites")

	got, err := settings.LoadWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, w, got)

	cfg := ranking.DefaultLearnerConfig()
	cfg.Enabled = false
	cfg.Momentum = 0.5
	require.NoError(t, settings.SaveLearnerConfig(ctx, cfg))
	gotCfg, err := settings.LoadLearnerConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, gotCfg)
}

func testRebalanceEvents(t *testing.T, db *sql.DB, d sqlstore.Dialect) {
	ctx := context.Background()
	events := sqlstore.NewRebalanceStore(db, d, nil)

	list, err := events.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, events.Append(ctx, ranking.RebalanceEvent{
			ID:        id,
			Kind:      ranking.MutationWeightsLearned,
			TriggerID: "task-" + id,
			Changes: []ranking.RankChange{
				{TaskID: "x", RankBefore: 5, RankAfter: 1, ScoreBefore: 90, ScoreAfter: 10},
			},
			OccurredAt: baseTime.Add(time.Duration(i) * time.Minute),
		}))
	}

	err = events.Append(ctx, ranking.RebalanceEvent{ID: "e1", Kind: ranking.MutationTaskCreated, OccurredAt: baseTime})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	list, err = events.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "e3", list[0].ID)
	assert.Equal(t, "e2", list[1].ID)
	assert.Equal(t, ranking.MutationWeightsLearned, list[0].Kind)
	assert.Equal(t, "task-e3", list[0].TriggerID)
	require.Len(t, list[0].Changes, 1)
	assert.Equal(t, 4, list[0].Changes[0].Shift())
	assert.WithinDuration(t, baseTime.Add(2*time.Minute), list[0].OccurredAt, time.Millisecond)
}
