package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/api"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/api/shared"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/sqlite"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/sqlstore"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/service"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	db := testdb.OpenSQLite(t)
	dialect := sqlite.Dialect()
	log, _ := logger.NewBufferLogger()

	// No rebalance store: history comes from the engine, synchronously.
	svc, err := service.NewTaskService(context.Background(), service.Dependencies{
		Tasks:    sqlstore.NewTaskStore(db, dialect, log),
		Settings: sqlstore.NewSettingsStore(db, dialect, log),
		DB:       db,
	}, ranking.DefaultEngineConfig(), log)
	require.NoError(t, err)

	return api.NewRouter(svc, log)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out), w.Body.String())
	return out
}

func rankedIDs(tasks []ranking.RankedTask) []string {
	ids := make([]string, len(tasks))
	for i, rt := range tasks {
		ids[i] = rt.Task.ID
	}
	return ids
}

func TestRouterTaskLifecycle(t *testing.T) {
	h := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/ranking/next", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, api.HealthResponse{Status: "ok", OpenTasks: 0}, decode[api.HealthResponse](t, w))

	for _, body := range []string{
		`{"id":"a","title":"Alpha","priority":"P0","project":"core"}`,
		`{"id":"b","title":"Bravo","priority":"P1","project":"core"}`,
		`{"id":"c","title":"Charlie","priority":"P2","project":"core"}`,
		`{"id":"d","title":"Delta","priority":"P3","project":"web"}`,
	} {
		w := do(t, h, http.MethodPost, "/api/tasks", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		task := decode[domain.Task](t, w)
		assert.Equal(t, domain.StatusNotStarted, task.Status)
	}

	t.Run("create rejects bad input", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/tasks", `{"title":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request format", decode[shared.ErrorResponse](t, w).Error)

		w = do(t, h, http.MethodPost, "/api/tasks", `{"title":"no priority"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid priority: required field", decode[shared.ErrorResponse](t, w).Error)

		w = do(t, h, http.MethodPost, "/api/tasks", `{"id":"a","title":"dup","priority":"P0"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "Task already exists", decode[shared.ErrorResponse](t, w).Error)
	})

	t.Run("list and get", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/tasks", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 4, decode[api.TaskListResponse](t, w).Count)

		w = do(t, h, http.MethodGet, "/api/tasks/b", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Bravo", decode[domain.Task](t, w).Title)

		w = do(t, h, http.MethodGet, "/api/tasks/missing", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Task not found", decode[shared.ErrorResponse](t, w).Error)
	})

	w = do(t, h, http.MethodGet, "/api/ranking", "")
	require.Equal(t, http.StatusOK, w.Code)
	ranked := decode[api.RankingResponse](t, w)
	assert.Equal(t, []string{"a", "b", "c", "d"}, rankedIDs(ranked.Tasks))
	assert.Equal(t, ranking.DefaultWeights(), ranked.Weights)

	// Promoting d to the top moves it three ranks, past the rebalance threshold.
	w = do(t, h, http.MethodPut, "/api/tasks/d", `{"priority":"P0","effort":"low"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.PriorityP0, decode[domain.Task](t, w).Priority)

	w = do(t, h, http.MethodGet, "/api/ranking/next", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "d", decode[ranking.RankedTask](t, w).Task.ID)

	t.Run("rebalances", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/rebalances?limit=5", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.RebalanceListResponse](t, w)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, ranking.MutationTaskUpdated, resp.Events[0].Kind)
		assert.Equal(t, "d", resp.Events[0].TriggerID)
		require.Len(t, resp.Events[0].Changes, 1)
		assert.Equal(t, 3, resp.Events[0].Changes[0].Shift())

		w = do(t, h, http.MethodGet, "/api/rebalances?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("explain", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/ranking/a/explain", "")
		require.Equal(t, http.StatusOK, w.Code)
		rt := decode[ranking.RankedTask](t, w)
		assert.Equal(t, 2, rt.Rank)
		assert.InDelta(t, rt.Score, rt.Breakdown.Total, 1e-9)

		w = do(t, h, http.MethodGet, "/api/ranking/missing/explain", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reorder", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/ranking/reorder", `{"task_id":"c","from_rank":4,"to_rank":1}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decode[ranking.ReorderResult](t, w)
		assert.Equal(t, "c", result.Event.TaskID)
		assert.Equal(t, ranking.DirectionPromoted, result.Event.Direction)
		assert.Equal(t, 3, result.PairsGenerated)

		w = do(t, h, http.MethodPost, "/api/ranking/reorder", `{"task_id":"c","from_rank":0,"to_rank":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid from_rank: too small", decode[shared.ErrorResponse](t, w).Error)

		w = do(t, h, http.MethodPost, "/api/ranking/reorder", `{"task_id":"a","from_rank":4,"to_rank":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Rank out of range", decode[shared.ErrorResponse](t, w).Error)
	})

	t.Run("weights", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/weights", "")
		require.Equal(t, http.StatusOK, w.Code)

		w = do(t, h, http.MethodPut, "/api/weights", `{"blocking":20}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.InDelta(t, 20.0, decode[ranking.HeuristicWeights](t, w).Blocking, 1e-9)

		w = do(t, h, http.MethodPut, "/api/weights", `{"blocking":-1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(t, h, http.MethodPut, "/api/weights", `{"bogus":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("learner", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/api/learner", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode[ranking.LearnerState](t, w).Config.Enabled)

		w = do(t, h, http.MethodPatch, "/api/learner", `{"learning_rate":0}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = do(t, h, http.MethodPatch, "/api/learner", `{"enabled":false}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, decode[ranking.LearnerState](t, w).Config.Enabled)
	})

	t.Run("complete and delete", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/api/tasks/a/complete", "")
		require.Equal(t, http.StatusOK, w.Code)
		task := decode[domain.Task](t, w)
		assert.Equal(t, domain.StatusComplete, task.Status)
		assert.NotNil(t, task.CompletedAt)

		w = do(t, h, http.MethodPost, "/api/tasks/a/complete", "")
		assert.Equal(t, http.StatusConflict, w.Code)

		w = do(t, h, http.MethodDelete, "/api/tasks/b", "")
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = do(t, h, http.MethodDelete, "/api/tasks/b", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	w = do(t, h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[api.HealthResponse](t, w).OpenTasks)
}
