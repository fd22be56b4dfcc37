package domain

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task has no title.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrInvalidPriority is returned when a priority label is not one of P0-P3.
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrInvalidStatus is returned when a task status is not recognised.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidEffort is returned when an effort level is not recognised.
	ErrInvalidEffort = errors.New("invalid task effort")

	// ErrSelfDependency is returned when a task lists itself as a dependency.
	ErrSelfDependency = errors.New("task cannot depend on itself")

	// ErrInvalidOverride is returned when a manual factor override is negative.
	ErrInvalidOverride = errors.New("factor override cannot be negative")
)

// Priority is the ordinal priority label of a task. P0 is the most urgent.
type Priority string

// Possible priority labels
const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// BaseScore returns the coarse score band for the label. Lower is more urgent.
// Unknown labels fall into the lowest band.
func (p Priority) BaseScore() float64 {
	switch p {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 100
	case PriorityP2:
		return 200
	default:
		return 300
	}
}

// IsValid reports whether p is one of the four known labels.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a task.
type Status string

// Possible task status values
const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusWaiting    Status = "waiting"
	StatusComplete   Status = "complete"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusBlocked, StatusWaiting, StatusComplete:
		return true
	default:
		return false
	}
}

// Effort is the three-level size estimate of a task. The zero value means
// no estimate was given.
type Effort string

// Possible effort levels
const (
	EffortNone   Effort = ""
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Value maps the effort to its quick-win value: low=3, medium=2, high=1, none=0.
func (e Effort) Value() int {
	switch e {
	case EffortLow:
		return 3
	case EffortMedium:
		return 2
	case EffortHigh:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether e is a known effort level, including none.
func (e Effort) IsValid() bool {
	switch e {
	case EffortNone, EffortLow, EffortMedium, EffortHigh:
		return true
	default:
		return false
	}
}

// FactorOverrides holds manual values for ranking factors. A nil field means
// "use the computed value".
type FactorOverrides struct {
	BlockingCount      *float64 `json:"blocking_count,omitempty" yaml:"blocking_count,omitempty"`
	CrossProjectImpact *float64 `json:"cross_project_impact,omitempty" yaml:"cross_project_impact,omitempty"`
	TimeSensitivity    *float64 `json:"time_sensitivity,omitempty" yaml:"time_sensitivity,omitempty"`
	EffortValueRatio   *float64 `json:"effort_value_ratio,omitempty" yaml:"effort_value_ratio,omitempty"`
	DependencyDepth    *float64 `json:"dependency_depth,omitempty" yaml:"dependency_depth,omitempty"`
}

// IsEmpty reports whether no override is set.
func (o *FactorOverrides) IsEmpty() bool {
	return o == nil ||
		(o.BlockingCount == nil && o.CrossProjectImpact == nil && o.TimeSensitivity == nil &&
			o.EffortValueRatio == nil && o.DependencyDepth == nil)
}

func (o *FactorOverrides) validate() error {
	if o == nil {
		return nil
	}
	for _, v := range []*float64{
		o.BlockingCount, o.CrossProjectImpact, o.TimeSensitivity, o.EffortValueRatio, o.DependencyDepth,
	} {
		if v != nil && *v < 0 {
			return ErrInvalidOverride
		}
	}
	return nil
}

// Task is a unit of work ranked by the priority engine. The engine only reads
// tasks; the task store owns them.
type Task struct {
	ID           string           `json:"id"`
	Project      string           `json:"project"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Priority     Priority         `json:"priority"`
	Status       Status           `json:"status"`
	Deadline     *time.Time       `json:"deadline,omitempty"`
	Effort       Effort           `json:"effort,omitempty"`
	Blocking     string           `json:"blocking,omitempty"`
	Dependencies []string         `json:"dependencies,omitempty"`
	Overrides    *FactorOverrides `json:"overrides,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// NewTask creates a new not-started Task with a generated ID and timestamps.
// Returns an error if validation fails.
func NewTask(project, title string, priority Priority) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.NewString(),
		Project:   project,
		Title:     title,
		Priority:  priority,
		Status:    StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrTaskIDEmpty
	}

	if strings.TrimSpace(t.Title) == "" {
		return ErrTaskTitleEmpty
	}

	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}

	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}

	if !t.Effort.IsValid() {
		return ErrInvalidEffort
	}

	if slices.Contains(t.Dependencies, t.ID) || t.Blocking == t.ID {
		return ErrSelfDependency
	}

	return t.Overrides.validate()
}

// IsComplete reports whether the task is finished and should leave the queue.
func (t *Task) IsComplete() bool {
	return t.Status == StatusComplete
}

// DependsOn reports whether the task lists id among its dependencies.
func (t *Task) DependsOn(id string) bool {
	return slices.Contains(t.Dependencies, id)
}

// Complete marks the task complete at the given time.
func (t *Task) Complete(now time.Time) {
	t.Status = StatusComplete
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// EdgesEqual reports whether two versions of a task have the same graph
// edges and project, i.e. whether an edit can change other tasks' factors.
func (t *Task) EdgesEqual(other *Task) bool {
	if t.Project != other.Project || t.Blocking != other.Blocking {
		return false
	}
	if len(t.Dependencies) != len(other.Dependencies) {
		return false
	}
	a := slices.Clone(t.Dependencies)
	b := slices.Clone(other.Dependencies)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() Task {
	c := *t
	c.Dependencies = slices.Clone(t.Dependencies)
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	if t.Overrides != nil {
		o := *t.Overrides
		c.Overrides = &o
	}
	return c
}
