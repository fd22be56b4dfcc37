package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Parallel() // Enable parallel execution

	task, err := NewTask("forge", "Write heap", PriorityP1)
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "forge", task.Project)
	assert.Equal(t, StatusNotStarted, task.Status)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)

	_, err = NewTask("forge", "  ", PriorityP1)
	if err != ErrTaskTitleEmpty {
		t.Errorf("Expected error %v, got %v", ErrTaskTitleEmpty, err)
	}

	_, err = NewTask("forge", "Write heap", Priority("P9"))
	if err != ErrInvalidPriority {
		t.Errorf("Expected error %v, got %v", ErrInvalidPriority, err)
	}
}

func TestTaskValidate(t *testing.T) {
	t.Parallel() // Enable parallel execution

	negative := -1.0
	valid := func() Task {
		return Task{
			ID:       "t1",
			Title:    "title",
			Priority: PriorityP2,
			Status:   StatusInProgress,
		}
	}

	testCases := []struct {
		name     string
		mutate   func(*Task)
		expected error
	}{
		{name: "valid task", mutate: func(*Task) {}, expected: nil},
		{name: "empty ID", mutate: func(t *Task) { t.ID = "" }, expected: ErrTaskIDEmpty},
		{name: "bad status", mutate: func(t *Task) { t.Status = "done" }, expected: ErrInvalidStatus},
		{name: "bad effort", mutate: func(t *Task) { t.Effort = "huge" }, expected: ErrInvalidEffort},
		{
			name:     "depends on itself",
			mutate:   func(t *Task) { t.Dependencies = []string{"t0", "t1"} },
			expected: ErrSelfDependency,
		},
		{name: "blocks itself", mutate: func(t *Task) { t.Blocking = "t1" }, expected: ErrSelfDependency},
		{
			name:     "negative override",
			mutate:   func(t *Task) { t.Overrides = &FactorOverrides{TimeSensitivity: &negative} },
			expected: ErrInvalidOverride,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			task := valid()
			tc.mutate(&task)
			err := task.Validate()
			if !errors.Is(err, tc.expected) {
				t.Errorf("Expected error %v, got %v", tc.expected, err)
			}
		})
	}
}

func TestPriorityBaseScore(t *testing.T) {
	t.Parallel() // Enable parallel execution

	assert.Equal(t, 0.0, PriorityP0.BaseScore())
	assert.Equal(t, 100.0, PriorityP1.BaseScore())
	assert.Equal(t, 200.0, PriorityP2.BaseScore())
	assert.Equal(t, 300.0, PriorityP3.BaseScore())
}

func TestEffortValue(t *testing.T) {
	t.Parallel() // Enable parallel execution

	assert.Equal(t, 3, EffortLow.Value())
	assert.Equal(t, 2, EffortMedium.Value())
	assert.Equal(t, 1, EffortHigh.Value())
	assert.Equal(t, 0, EffortNone.Value())
}

func TestTaskEdgesEqual(t *testing.T) {
	t.Parallel() // Enable parallel execution

	a := Task{ID: "a", Project: "p", Dependencies: []string{"x", "y"}}
	b := Task{ID: "a", Project: "p", Dependencies: []string{"y", "x"}, Title: "renamed"}
	assert.True(t, a.EdgesEqual(&b), "dependency order and non-edge fields should not matter")

	b.Blocking = "z"
	assert.False(t, a.EdgesEqual(&b))

	c := Task{ID: "a", Project: "q", Dependencies: []string{"x", "y"}}
	assert.False(t, a.EdgesEqual(&c), "project change alters cross-project impact of neighbours")
}

func TestTaskCloneAndComplete(t *testing.T) {
	t.Parallel() // Enable parallel execution

	deadline := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	task := Task{ID: "a", Deadline: &deadline, Dependencies: []string{"b"}}

	clone := task.Clone()
	clone.Dependencies[0] = "c"
	*clone.Deadline = deadline.Add(time.Hour)

	assert.Equal(t, "b", task.Dependencies[0])
	assert.Equal(t, deadline, *task.Deadline)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	task.Complete(now)
	assert.True(t, task.IsComplete())
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)
}
