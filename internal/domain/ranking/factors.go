package ranking

import (
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
)

// Factor caps
const (
	maxBlockingCount   = 10
	maxDependencyDepth = 5
	effortScale        = 3
)

// Time-sensitivity buckets
const (
	timeOverdue      = 10
	timeUnderOneDay  = 9
	timeUnderThree   = 7
	timeUnderWeek    = 5
	timeUnderTwoWeek = 3
	timeLater        = 1
	timeBlocksOther  = 4
)

// factorCount is the number of tunable factors and weights.
const factorCount = 5

// TaskFactors are the derived signals that adjust a task's base score.
// Larger values raise priority. They are recomputed on demand and never
// stored apart from the task.
type TaskFactors struct {
	BlockingCount      float64 `json:"blocking_count"`
	CrossProjectImpact float64 `json:"cross_project_impact"`
	TimeSensitivity    float64 `json:"time_sensitivity"`
	EffortValueRatio   float64 `json:"effort_value_ratio"`
	DependencyDepth    float64 `json:"dependency_depth"`
}

func (f TaskFactors) vector() [factorCount]float64 {
	return [factorCount]float64{
		f.BlockingCount,
		f.CrossProjectImpact,
		f.TimeSensitivity,
		f.EffortValueRatio,
		f.DependencyDepth,
	}
}

// ApplyOverrides returns f with every non-nil override taking precedence over
// the computed value.
func ApplyOverrides(f TaskFactors, o *domain.FactorOverrides) TaskFactors {
	if o == nil {
		return f
	}
	if o.BlockingCount != nil {
		f.BlockingCount = *o.BlockingCount
	}
	if o.CrossProjectImpact != nil {
		f.CrossProjectImpact = *o.CrossProjectImpact
	}
	if o.TimeSensitivity != nil {
		f.TimeSensitivity = *o.TimeSensitivity
	}
	if o.EffortValueRatio != nil {
		f.EffortValueRatio = *o.EffortValueRatio
	}
	if o.DependencyDepth != nil {
		f.DependencyDepth = *o.DependencyDepth
	}
	return f
}

// ComputeFactors derives the factors of task from the full task set, then
// applies the task's manual overrides. all may or may not include task.
func ComputeFactors(task domain.Task, all []domain.Task, now time.Time) TaskFactors {
	g := newTaskGraph(all)
	return g.factors(&task, now)
}

// taskGraph indexes a task set so factors for every task can be derived
// without rescanning the whole set per edge.
type taskGraph struct {
	byID map[string]*domain.Task
	// dependents maps an id to the tasks that list it in Dependencies.
	dependents map[string][]*domain.Task
	// blockedBy maps an id to the tasks whose Blocking field names it.
	blockedBy map[string][]*domain.Task
}

func newTaskGraph(all []domain.Task) *taskGraph {
	g := &taskGraph{
		byID:       make(map[string]*domain.Task, len(all)),
		dependents: make(map[string][]*domain.Task),
		blockedBy:  make(map[string][]*domain.Task),
	}
	for i := range all {
		t := &all[i]
		g.byID[t.ID] = t
		for _, dep := range t.Dependencies {
			g.dependents[dep] = append(g.dependents[dep], t)
		}
		if t.Blocking != "" {
			g.blockedBy[t.Blocking] = append(g.blockedBy[t.Blocking], t)
		}
	}
	return g
}

func (g *taskGraph) factors(task *domain.Task, now time.Time) TaskFactors {
	f := TaskFactors{
		BlockingCount:      float64(g.blockingCount(task)),
		CrossProjectImpact: g.crossProjectImpact(task),
		TimeSensitivity:    float64(timeSensitivity(task, now)),
		EffortValueRatio:   float64(task.Effort.Value() * effortScale),
		DependencyDepth:    float64(g.dependencyDepth(task)),
	}
	return ApplyOverrides(f, task.Overrides)
}

// blockingCount counts the other tasks that depend on task or whose Blocking
// field names it, capped at maxBlockingCount.
func (g *taskGraph) blockingCount(task *domain.Task) int {
	seen := make(map[string]struct{})
	for _, t := range g.dependents[task.ID] {
		if t.ID != task.ID {
			seen[t.ID] = struct{}{}
		}
	}
	for _, t := range g.blockedBy[task.ID] {
		if t.ID != task.ID {
			seen[t.ID] = struct{}{}
		}
	}
	return min(len(seen), maxBlockingCount)
}

// crossProjectImpact is 1 when any task that depends on task, or that task
// blocks, belongs to a different project.
func (g *taskGraph) crossProjectImpact(task *domain.Task) float64 {
	for _, t := range g.dependents[task.ID] {
		if t.ID != task.ID && t.Project != task.Project {
			return 1
		}
	}
	if blocked, ok := g.byID[task.Blocking]; ok && blocked.ID != task.ID && blocked.Project != task.Project {
		return 1
	}
	return 0
}

func timeSensitivity(task *domain.Task, now time.Time) int {
	if task.Deadline == nil {
		if task.Blocking != "" {
			return timeBlocksOther
		}
		return 0
	}

	days := task.Deadline.Sub(now).Hours() / 24
	switch {
	case days < 0:
		return timeOverdue
	case days < 1:
		return timeUnderOneDay
	case days < 3:
		return timeUnderThree
	case days < 7:
		return timeUnderWeek
	case days < 14:
		return timeUnderTwoWeek
	default:
		return timeLater
	}
}

// dependencyDepth is the longest chain of Dependencies edges reachable from
// task, capped at maxDependencyDepth. A dependency id missing from the set
// still counts as one edge.
func (g *taskGraph) dependencyDepth(task *domain.Task) int {
	onPath := map[string]bool{task.ID: true}
	return g.depthFrom(task, onPath, maxDependencyDepth)
}

// depthFrom walks dependencies depth-first. onPath holds the ids on the
// current path only, so an edge that closes a cycle contributes nothing while
// a node shared by two branches is counted on each. budget bounds the walk to
// the depth that can still change the capped result.
func (g *taskGraph) depthFrom(task *domain.Task, onPath map[string]bool, budget int) int {
	if budget <= 0 {
		return 0
	}
	best := 0
	for _, dep := range task.Dependencies {
		if onPath[dep] {
			continue
		}
		d := 1
		if next, ok := g.byID[dep]; ok {
			onPath[dep] = true
			d += g.depthFrom(next, onPath, budget-1)
			delete(onPath, dep)
		}
		if d > best {
			best = d
		}
		if best >= budget {
			break
		}
	}
	return best
}
