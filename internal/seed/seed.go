// Package seed reads task lists from YAML files. The files seed a database
// at startup and feed the offline rank command.
//
// A seed file looks like:
//
//	tasks:
//	  - id: schema
//	    title: Design schema
//	    priority: P1
//	    project: api
//	    deadline: 2026-11-01
//	  - title: Write handlers
//	    priority: P1
//	    dependencies: [schema]
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/service"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
)

// ErrInvalidFile is returned when a seed file cannot be parsed or holds an
// invalid task.
var ErrInvalidFile = errors.New("invalid seed file")

var validate = validator.New(validator.WithRequiredStructEnabled())

// File is the top-level document of a seed file.
type File struct {
	Tasks []service.CreateTaskInput `yaml:"tasks"`
}

// Load reads and validates the seed file at path.
func Load(path string) ([]service.CreateTaskInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	tasks, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, nil
}

// Parse decodes a seed document. Unknown keys are rejected so that typos do
// not silently drop data.
func Parse(r io.Reader) ([]service.CreateTaskInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	seen := make(map[string]int, len(file.Tasks))
	for i, task := range file.Tasks {
		if err := validate.Struct(task); err != nil {
			return nil, fmt.Errorf("%w: task %d: %w", ErrInvalidFile, i+1, err)
		}
		if task.ID == "" {
			continue
		}
		if prev, ok := seen[task.ID]; ok {
			return nil, fmt.Errorf("%w: task %d repeats id %q of task %d", ErrInvalidFile, i+1, task.ID, prev)
		}
		seen[task.ID] = i + 1
	}
	return file.Tasks, nil
}

// ToTasks converts seed entries into domain tasks stamped with now.
func ToTasks(inputs []service.CreateTaskInput, now time.Time) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(inputs))
	for i, in := range inputs {
		task := in.ToTask(now)
		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("%w: task %d: %w", ErrInvalidFile, i+1, err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

// Result counts what Apply did.
type Result struct {
	Created int
	Skipped int
}

// Apply creates every seed task through the service. Tasks whose ID already
// exists are skipped, so applying the same file twice is harmless.
func Apply(ctx context.Context, svc service.TaskService, inputs []service.CreateTaskInput, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "seed"))

	var res Result
	for _, in := range inputs {
		if _, err := svc.CreateTask(ctx, in); err != nil {
			if store.IsDuplicateError(err) {
				log.Debug("seed task already exists", slog.String("task_id", in.ID))
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("seed task %q: %w", in.Title, err)
		}
		res.Created++
	}

	log.Info("seed applied", slog.Int("created", res.Created), slog.Int("skipped", res.Skipped))
	return res, nil
}
