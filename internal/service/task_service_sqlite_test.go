package service_test

import (
	"context"
	"testing"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/sqlite"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/sqlstore"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/service"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskServiceOnSQLite(t *testing.T) {
	ctx := context.Background()
	db := testdb.OpenSQLite(t)
	dialect := sqlite.Dialect()

	deps := service.Dependencies{
		Tasks:      sqlstore.NewTaskStore(db, dialect, nil),
		Settings:   sqlstore.NewSettingsStore(db, dialect, nil),
		Rebalances: sqlstore.NewRebalanceStore(db, dialect, nil),
		DB:         db,
	}

	svc, err := service.NewTaskService(ctx, deps, ranking.DefaultEngineConfig(), nil)
	require.NoError(t, err)

	for _, in := range []service.CreateTaskInput{
		{ID: "schema", Title: "Design schema", Priority: domain.PriorityP1, Project: "api"},
		{ID: "handlers", Title: "Write handlers", Priority: domain.PriorityP1, Project: "api", Dependencies: []string{"schema"}},
		{ID: "docs", Title: "Write docs", Priority: domain.PriorityP3, Project: "web", Effort: domain.EffortLow},
	} {
		_, err := svc.CreateTask(ctx, in)
		require.NoError(t, err)
	}

	next, ok := svc.NextTask(ctx)
	require.True(t, ok)
	assert.Equal(t, "schema", next.Task.ID, "the blocker of another task ranks first")

	_, err = svc.CreateTask(ctx, service.CreateTaskInput{ID: "schema", Title: "dup", Priority: domain.PriorityP0})
	require.Error(t, err)
	list, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3, "the failed insert rolled back")

	result, err := svc.LogReorder(ctx, ranking.ReorderRequest{TaskID: "docs", FromRank: 3, ToRank: 1})
	require.NoError(t, err)
	require.True(t, result.WeightUpdateApplied)

	_, err = svc.CompleteTask(ctx, "schema")
	require.NoError(t, err)

	// A second service over the same database sees the learned weights and
	// the completed task.
	restarted, err := service.NewTaskService(ctx, deps, ranking.DefaultEngineConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, result.Weights, restarted.Weights(ctx))
	for _, rt := range restarted.Ranking(ctx) {
		assert.NotEqual(t, "schema", rt.Task.ID)
	}

	state, err := restarted.UpdateLearnerConfig(ctx, ranking.LearnerConfigUpdate{Enabled: ptrTo(false)})
	require.NoError(t, err)
	assert.False(t, state.Config.Enabled)
}

func ptrTo[T any](v T) *T { return &v }
