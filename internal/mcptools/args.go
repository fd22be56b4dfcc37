package mcptools

import (
	"fmt"
	"strings"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/service"
)

// QueueArgs are the arguments of get_priority_queue.
type QueueArgs struct {
	Limit          int  `json:"limit,omitempty" jsonschema:"description=Return at most this many tasks; 0 returns the whole queue" validate:"gte=0"`
	IncludeFactors bool `json:"include_factors,omitempty" jsonschema:"description=Include the factor values and score breakdown of each task"`
}

// CreateTaskArgs are the arguments of create_task.
type CreateTaskArgs struct {
	ID           string   `json:"id,omitempty" jsonschema:"description=Task ID; generated when omitted" validate:"omitempty,max=128"`
	Title        string   `json:"title" jsonschema:"required,description=Short task title" validate:"required,max=500"`
	Priority     string   `json:"priority" jsonschema:"required,enum=P0,enum=P1,enum=P2,enum=P3,description=Priority tier; P0 is most urgent" validate:"required,oneof=P0 P1 P2 P3"`
	Project      string   `json:"project,omitempty" jsonschema:"description=Project the task belongs to" validate:"max=128"`
	Description  string   `json:"description,omitempty" jsonschema:"description=Longer description"`
	Status       string   `json:"status,omitempty" jsonschema:"enum=not_started,enum=in_progress,enum=blocked,enum=waiting,enum=complete,description=Initial status" validate:"omitempty,oneof=not_started in_progress blocked waiting complete"`
	Deadline     string   `json:"deadline,omitempty" jsonschema:"description=Deadline as RFC 3339 timestamp or YYYY-MM-DD date"`
	Effort       string   `json:"effort,omitempty" jsonschema:"enum=low,enum=medium,enum=high,description=Estimated effort" validate:"omitempty,oneof=low medium high"`
	Blocking     string   `json:"blocking,omitempty" jsonschema:"description=ID of a task this one blocks"`
	Dependencies []string `json:"dependencies,omitempty" jsonschema:"description=IDs of tasks this one depends on" validate:"dive,required"`
	Notes        string   `json:"notes,omitempty" jsonschema:"description=Free-form notes"`
}

func (a CreateTaskArgs) toInput() (service.CreateTaskInput, error) {
	deadline, err := parseDeadline(a.Deadline)
	if err != nil {
		return service.CreateTaskInput{}, err
	}
	return service.CreateTaskInput{
		ID:           a.ID,
		Project:      a.Project,
		Title:        a.Title,
		Description:  a.Description,
		Priority:     domain.Priority(a.Priority),
		Status:       domain.Status(a.Status),
		Deadline:     deadline,
		Effort:       domain.Effort(a.Effort),
		Blocking:     a.Blocking,
		Dependencies: a.Dependencies,
		Notes:        a.Notes,
	}, nil
}

// UpdateTaskArgs are the arguments of update_task. Omitted fields keep their
// value.
type UpdateTaskArgs struct {
	ID            string    `json:"id" jsonschema:"required,description=ID of the task to update" validate:"required"`
	Title         *string   `json:"title,omitempty" jsonschema:"description=New title" validate:"omitempty,min=1,max=500"`
	Priority      *string   `json:"priority,omitempty" jsonschema:"enum=P0,enum=P1,enum=P2,enum=P3,description=New priority tier" validate:"omitempty,oneof=P0 P1 P2 P3"`
	Project       *string   `json:"project,omitempty" jsonschema:"description=New project" validate:"omitempty,max=128"`
	Description   *string   `json:"description,omitempty" jsonschema:"description=New description"`
	Status        *string   `json:"status,omitempty" jsonschema:"enum=not_started,enum=in_progress,enum=blocked,enum=waiting,enum=complete,description=New status" validate:"omitempty,oneof=not_started in_progress blocked waiting complete"`
	Deadline      *string   `json:"deadline,omitempty" jsonschema:"description=New deadline as RFC 3339 timestamp or YYYY-MM-DD date"`
	ClearDeadline bool      `json:"clear_deadline,omitempty" jsonschema:"description=Remove the deadline"`
	Effort        *string   `json:"effort,omitempty" jsonschema:"enum=low,enum=medium,enum=high,description=New effort estimate" validate:"omitempty,oneof=low medium high"`
	Blocking      *string   `json:"blocking,omitempty" jsonschema:"description=ID of a task this one blocks; empty string clears it"`
	Dependencies  *[]string `json:"dependencies,omitempty" jsonschema:"description=Replacement dependency list"`
	Notes         *string   `json:"notes,omitempty" jsonschema:"description=New notes"`
}

func (a UpdateTaskArgs) toInput() (service.UpdateTaskInput, error) {
	in := service.UpdateTaskInput{
		Project:       a.Project,
		Title:         a.Title,
		Description:   a.Description,
		ClearDeadline: a.ClearDeadline,
		Blocking:      a.Blocking,
		Dependencies:  a.Dependencies,
		Notes:         a.Notes,
	}
	if a.Priority != nil {
		p := domain.Priority(*a.Priority)
		in.Priority = &p
	}
	if a.Status != nil {
		s := domain.Status(*a.Status)
		in.Status = &s
	}
	if a.Effort != nil {
		e := domain.Effort(*a.Effort)
		in.Effort = &e
	}
	if a.Deadline != nil {
		deadline, err := parseDeadline(*a.Deadline)
		if err != nil {
			return service.UpdateTaskInput{}, err
		}
		in.Deadline = deadline
	}
	return in, nil
}

// TaskIDArgs identify a single task.
type TaskIDArgs struct {
	ID string `json:"id" jsonschema:"required,description=Task ID" validate:"required"`
}

// ReorderArgs are the arguments of log_reorder.
type ReorderArgs struct {
	TaskID   string   `json:"task_id" jsonschema:"required,description=ID of the task that was moved" validate:"required"`
	FromRank int      `json:"from_rank" jsonschema:"required,minimum=1,description=1-based rank the task was moved from" validate:"min=1"`
	ToRank   int      `json:"to_rank" jsonschema:"required,minimum=1,description=1-based rank the task was moved to" validate:"min=1"`
	View     []string `json:"view,omitempty" jsonschema:"description=Ranked task IDs as shown when the move happened; defaults to the current queue" validate:"omitempty,dive,required"`
}

// WeightsArgs are the arguments of update_weights. Omitted weights are kept.
type WeightsArgs struct {
	Blocking        *float64 `json:"blocking,omitempty" jsonschema:"description=Weight of the number of tasks this one blocks"`
	CrossProject    *float64 `json:"cross_project,omitempty" jsonschema:"description=Weight of blocking work in another project"`
	TimeSensitivity *float64 `json:"time_sensitivity,omitempty" jsonschema:"description=Weight of deadline urgency"`
	EffortValue     *float64 `json:"effort_value,omitempty" jsonschema:"description=Weight of the effort value ratio"`
	DependencyDepth *float64 `json:"dependency_depth,omitempty" jsonschema:"description=Weight of dependency chain depth"`
}

func (a WeightsArgs) toUpdate() ranking.WeightsUpdate {
	return ranking.WeightsUpdate{
		Blocking:        a.Blocking,
		CrossProject:    a.CrossProject,
		TimeSensitivity: a.TimeSensitivity,
		EffortValue:     a.EffortValue,
		DependencyDepth: a.DependencyDepth,
	}
}

// parseDeadline accepts an RFC 3339 timestamp or a bare date, read as
// midnight UTC. Empty means no deadline.
func parseDeadline(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: deadline %q is neither RFC 3339 nor YYYY-MM-DD", domain.ErrValidation, raw)
}
