package ranking

import (
	"fmt"
	"testing"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestDependencyDepthChain(t *testing.T) {
	t.Parallel() // Enable parallel execution

	// C depends on B depends on A.
	tasks := []domain.Task{
		{ID: "A"},
		{ID: "B", Dependencies: []string{"A"}},
		{ID: "C", Dependencies: []string{"B"}},
	}

	expected := map[string]float64{"A": 0, "B": 1, "C": 2}
	for _, task := range tasks {
		f := ComputeFactors(task, tasks, testNow)
		assert.Equal(t, expected[task.ID], f.DependencyDepth, "depth of %s", task.ID)
	}
}

func TestDependencyDepthCycle(t *testing.T) {
	t.Parallel() // Enable parallel execution

	tasks := []domain.Task{
		{ID: "A", Dependencies: []string{"B"}},
		{ID: "B", Dependencies: []string{"A"}},
	}

	for _, task := range tasks {
		f := ComputeFactors(task, tasks, testNow)
		assert.GreaterOrEqual(t, f.DependencyDepth, 0.0)
		assert.LessOrEqual(t, f.DependencyDepth, float64(maxDependencyDepth))
		assert.Equal(t, 1.0, f.DependencyDepth, "closing edge of the cycle contributes nothing")
	}
}

func TestDependencyDepthCapped(t *testing.T) {
	t.Parallel() // Enable parallel execution

	var tasks []domain.Task
	for i := 0; i < 10; i++ {
		task := domain.Task{ID: fmt.Sprintf("t%d", i)}
		if i > 0 {
			task.Dependencies = []string{fmt.Sprintf("t%d", i-1)}
		}
		tasks = append(tasks, task)
	}

	f := ComputeFactors(tasks[9], tasks, testNow)
	assert.Equal(t, float64(maxDependencyDepth), f.DependencyDepth)
}

func TestDependencyDepthDiamond(t *testing.T) {
	t.Parallel() // Enable parallel execution

	// A depends on B and C, B depends on C, C depends on D. The longest
	// chain A -> B -> C -> D must win whichever branch is walked first.
	tests := []struct {
		name string
		deps []string
	}{
		{"shared node first", []string{"C", "B"}},
		{"long branch first", []string{"B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tasks := []domain.Task{
				{ID: "A", Dependencies: tt.deps},
				{ID: "B", Dependencies: []string{"C"}},
				{ID: "C", Dependencies: []string{"D"}},
				{ID: "D"},
			}
			f := ComputeFactors(tasks[0], tasks, testNow)
			assert.Equal(t, 3.0, f.DependencyDepth)
		})
	}
}

func TestDependencyDepthUnknownDependency(t *testing.T) {
	t.Parallel() // Enable parallel execution

	task := domain.Task{ID: "A", Dependencies: []string{"ghost"}}
	f := ComputeFactors(task, []domain.Task{task}, testNow)
	assert.Equal(t, 1.0, f.DependencyDepth)
}

func TestBlockingCount(t *testing.T) {
	t.Parallel() // Enable parallel execution

	tasks := []domain.Task{
		{ID: "root"},
		{ID: "d1", Dependencies: []string{"root"}},
		{ID: "d2", Dependencies: []string{"root"}},
		{ID: "b1", Blocking: "root"},
		// Both a dependency and a Blocking reference: counted once.
		{ID: "both", Dependencies: []string{"root"}, Blocking: "root"},
		{ID: "unrelated", Dependencies: []string{"d1"}},
	}

	f := ComputeFactors(tasks[0], tasks, testNow)
	assert.Equal(t, 4.0, f.BlockingCount)

	f = ComputeFactors(tasks[1], tasks, testNow)
	assert.Equal(t, 1.0, f.BlockingCount)
}

func TestBlockingCountCapped(t *testing.T) {
	t.Parallel() // Enable parallel execution

	tasks := []domain.Task{{ID: "root"}}
	for i := 0; i < 15; i++ {
		tasks = append(tasks, domain.Task{ID: fmt.Sprintf("d%d", i), Dependencies: []string{"root"}})
	}

	f := ComputeFactors(tasks[0], tasks, testNow)
	assert.Equal(t, float64(maxBlockingCount), f.BlockingCount)
}

func TestCrossProjectImpact(t *testing.T) {
	t.Parallel() // Enable parallel execution

	testCases := []struct {
		name     string
		tasks    []domain.Task
		expected float64
	}{
		{
			name: "dependent in same project",
			tasks: []domain.Task{
				{ID: "x", Project: "api"},
				{ID: "y", Project: "api", Dependencies: []string{"x"}},
			},
			expected: 0,
		},
		{
			name: "dependent in other project",
			tasks: []domain.Task{
				{ID: "x", Project: "api"},
				{ID: "y", Project: "web", Dependencies: []string{"x"}},
			},
			expected: 1,
		},
		{
			name: "blocks task in other project",
			tasks: []domain.Task{
				{ID: "x", Project: "api", Blocking: "y"},
				{ID: "y", Project: "web"},
			},
			expected: 1,
		},
		{
			name: "blocking free-text tag",
			tasks: []domain.Task{
				{ID: "x", Project: "api", Blocking: "release train"},
			},
			expected: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := ComputeFactors(tc.tasks[0], tc.tasks, testNow)
			assert.Equal(t, tc.expected, f.CrossProjectImpact)
		})
	}
}

func TestTimeSensitivity(t *testing.T) {
	t.Parallel() // Enable parallel execution

	testCases := []struct {
		name     string
		deadline *time.Time
		blocking string
		expected float64
	}{
		{name: "overdue", deadline: ptr(testNow.Add(-time.Hour)), expected: 10},
		{name: "under a day", deadline: ptr(testNow.Add(12 * time.Hour)), expected: 9},
		{name: "under three days", deadline: ptr(testNow.Add(48 * time.Hour)), expected: 7},
		{name: "under a week", deadline: ptr(testNow.Add(5 * 24 * time.Hour)), expected: 5},
		{name: "under two weeks", deadline: ptr(testNow.Add(10 * 24 * time.Hour)), expected: 3},
		{name: "far future", deadline: ptr(testNow.Add(30 * 24 * time.Hour)), expected: 1},
		{name: "no deadline but blocks", blocking: "other", expected: 4},
		{name: "no deadline", expected: 0},
		{name: "deadline wins over blocking", deadline: ptr(testNow.Add(30 * 24 * time.Hour)), blocking: "other", expected: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			task := domain.Task{ID: "t", Deadline: tc.deadline, Blocking: tc.blocking}
			f := ComputeFactors(task, nil, testNow)
			assert.Equal(t, tc.expected, f.TimeSensitivity)
		})
	}
}

func TestEffortValueRatio(t *testing.T) {
	t.Parallel() // Enable parallel execution

	expected := map[domain.Effort]float64{
		domain.EffortLow:    9,
		domain.EffortMedium: 6,
		domain.EffortHigh:   3,
		domain.EffortNone:   0,
	}
	for effort, want := range expected {
		f := ComputeFactors(domain.Task{ID: "t", Effort: effort}, nil, testNow)
		assert.Equal(t, want, f.EffortValueRatio, "effort %q", effort)
	}
}

func TestFactorOverrides(t *testing.T) {
	t.Parallel() // Enable parallel execution

	task := domain.Task{
		ID:       "t",
		Effort:   domain.EffortLow,
		Blocking: "other",
		Overrides: &domain.FactorOverrides{
			TimeSensitivity: ptr(8.0),
			BlockingCount:   ptr(0.0),
		},
	}

	f := ComputeFactors(task, nil, testNow)
	assert.Equal(t, 8.0, f.TimeSensitivity, "override replaces computed value")
	assert.Equal(t, 0.0, f.BlockingCount, "explicit zero override still applies")
	assert.Equal(t, 9.0, f.EffortValueRatio, "nil override keeps computed value")
}
