package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/platform/logger"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingService fails every call it overrides; the embedded interface is
// nil, so calling anything else panics.
type failingService struct {
	service.TaskService
	err error
}

func (f *failingService) ListTasks(context.Context) ([]domain.Task, error) {
	return nil, f.err
}

func (f *failingService) CreateTask(context.Context, service.CreateTaskInput) (*domain.Task, error) {
	return nil, f.err
}

func (f *failingService) RebalanceHistory(context.Context, int) ([]ranking.RebalanceEvent, error) {
	return nil, f.err
}

func (f *failingService) LogReorder(context.Context, ranking.ReorderRequest) (ranking.ReorderResult, error) {
	return ranking.ReorderResult{}, f.err
}

func TestHandlersDoNotLeakInternalErrors(t *testing.T) {
	t.Parallel()

	secret := errors.New("query failed: postgres://forge:hunter2@db:5432/pf SELECT * FROM tasks")
	svc := &failingService{err: secret}
	log, buf := logger.NewBufferLogger()
	router := NewRouter(svc, log)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		message string
	}{
		{"list tasks", http.MethodGet, "/api/tasks", "", "Failed to list tasks"},
		{"create task", http.MethodPost, "/api/tasks", `{"title":"x","priority":"P1"}`, "Failed to create task"},
		{"rebalances", http.MethodGet, "/api/rebalances", "", "Failed to list rebalances"},
		{"reorder", http.MethodPost, "/api/ranking/reorder", `{"task_id":"a","from_rank":2,"to_rank":1}`, "Failed to log reorder"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Contains(t, w.Body.String(), tc.message)
			assert.NotContains(t, w.Body.String(), "hunter2")
			assert.NotContains(t, w.Body.String(), "SELECT")
			assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
		})
	}

	logged := buf.String()
	assert.Contains(t, logged, "API error response")
	assert.NotContains(t, logged, "hunter2")
}

func TestGetLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", defaultListLimit, false},
		{"?limit=3", 3, false},
		{"?limit=100000", maxListLimit, false},
		{"?limit=0", 0, true},
		{"?limit=-2", 0, true},
		{"?limit=ten", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()
			got, err := getLimit(httptest.NewRequest(http.MethodGet, "/api/rebalances"+tc.query, nil))
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewHandlersRequireService(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewTaskHandler(nil, nil) })
	assert.Panics(t, func() { NewRankingHandler(nil, nil) })
}
