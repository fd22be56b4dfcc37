package service

import (
	"strings"
	"time"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/google/uuid"
)

// CreateTaskInput holds the caller-supplied fields of a new task.
type CreateTaskInput struct {
	ID           string                  `json:"id,omitempty" yaml:"id,omitempty" validate:"omitempty,max=128"`
	Project      string                  `json:"project" yaml:"project" validate:"max=128"`
	Title        string                  `json:"title" yaml:"title" validate:"required,max=500"`
	Description  string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Priority     domain.Priority         `json:"priority" yaml:"priority" validate:"required,oneof=P0 P1 P2 P3"`
	Status       domain.Status           `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=not_started in_progress blocked waiting complete"`
	Deadline     *time.Time              `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Effort       domain.Effort           `json:"effort,omitempty" yaml:"effort,omitempty" validate:"omitempty,oneof=low medium high"`
	Blocking     string                  `json:"blocking,omitempty" yaml:"blocking,omitempty"`
	Dependencies []string                `json:"dependencies,omitempty" yaml:"dependencies,omitempty" validate:"dive,required"`
	Overrides    *domain.FactorOverrides `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	Notes        string                  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ToTask builds the domain task. A missing ID is generated and a missing
// status defaults to not_started.
func (in CreateTaskInput) ToTask(now time.Time) *domain.Task {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	status := in.Status
	if status == "" {
		status = domain.StatusNotStarted
	}

	task := &domain.Task{
		ID:           id,
		Project:      in.Project,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Priority:     in.Priority,
		Status:       status,
		Deadline:     utc(in.Deadline),
		Effort:       in.Effort,
		Blocking:     in.Blocking,
		Dependencies: dedupe(in.Dependencies),
		Overrides:    in.Overrides,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if task.Overrides.IsEmpty() {
		task.Overrides = nil
	}
	if status == domain.StatusComplete {
		task.Complete(now)
	}
	return task
}

// UpdateTaskInput is a partial update. Nil fields keep their value.
type UpdateTaskInput struct {
	Project       *string                 `json:"project,omitempty" validate:"omitempty,max=128"`
	Title         *string                 `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Description   *string                 `json:"description,omitempty"`
	Priority      *domain.Priority        `json:"priority,omitempty" validate:"omitempty,oneof=P0 P1 P2 P3"`
	Status        *domain.Status          `json:"status,omitempty" validate:"omitempty,oneof=not_started in_progress blocked waiting complete"`
	Deadline      *time.Time              `json:"deadline,omitempty"`
	ClearDeadline bool                    `json:"clear_deadline,omitempty"`
	Effort        *domain.Effort          `json:"effort,omitempty" validate:"omitempty,oneof=low medium high"`
	Blocking      *string                 `json:"blocking,omitempty"`
	Dependencies  *[]string               `json:"dependencies,omitempty"`
	Overrides     *domain.FactorOverrides `json:"overrides,omitempty"`
	Notes         *string                 `json:"notes,omitempty"`
}

// applyTo returns a copy of task with the update applied and reports whether
// the update completed it.
func (in UpdateTaskInput) applyTo(task domain.Task, now time.Time) (domain.Task, bool) {
	next := task.Clone()
	if in.Project != nil {
		next.Project = *in.Project
	}
	if in.Title != nil {
		next.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Priority != nil {
		next.Priority = *in.Priority
	}
	if in.Deadline != nil {
		next.Deadline = utc(in.Deadline)
	}
	if in.ClearDeadline {
		next.Deadline = nil
	}
	if in.Effort != nil {
		next.Effort = *in.Effort
	}
	if in.Blocking != nil {
		next.Blocking = *in.Blocking
	}
	if in.Dependencies != nil {
		next.Dependencies = dedupe(*in.Dependencies)
	}
	if in.Overrides != nil {
		next.Overrides = in.Overrides
		if next.Overrides.IsEmpty() {
			next.Overrides = nil
		}
	}
	if in.Notes != nil {
		next.Notes = *in.Notes
	}
	next.UpdatedAt = now

	completed := false
	if in.Status != nil && *in.Status != next.Status {
		switch {
		case *in.Status == domain.StatusComplete:
			next.Complete(now)
			completed = true
		default:
			next.Status = *in.Status
			next.CompletedAt = nil
		}
	}
	return next, completed
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// dedupe drops empty and repeated ids, keeping first occurrences.
func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
