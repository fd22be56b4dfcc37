package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/domain/ranking"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/events"
	"github.com/Unobtainiumrock/priority-forge-sub000/internal/store"
	"github.com/stretchr/testify/mock"
)

// memoryTaskStore is an in-memory store.TaskStore.
type memoryTaskStore struct {
	mu      sync.Mutex
	tasks   map[string]domain.Task
	listErr error
}

func newMemoryTaskStore(tasks ...domain.Task) *memoryTaskStore {
	s := &memoryTaskStore{tasks: map[string]domain.Task{}}
	for _, t := range tasks {
		s.tasks[t.ID] = t.Clone()
	}
	return s
}

func (s *memoryTaskStore) Create(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if _, ok := s.tasks[task.ID]; ok {
		return fmt.Errorf("%w: %s", store.ErrTaskExists, task.ID)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *memoryTaskStore) GetByID(_ context.Context, id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	c := t.Clone()
	return &c, nil
}

func (s *memoryTaskStore) List(_ context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memoryTaskStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, task.ID)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *memoryTaskStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrTaskNotFound, id)
	}
	delete(s.tasks, id)
	return nil
}

func (s *memoryTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return s }

// MockSettingsStore mocks the store.SettingsStore interface
type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) LoadWeights(ctx context.Context) (ranking.HeuristicWeights, error) {
	args := m.Called(ctx)
	return args.Get(0).(ranking.HeuristicWeights), args.Error(1)
}

func (m *MockSettingsStore) SaveWeights(ctx context.Context, weights ranking.HeuristicWeights) error {
	return m.Called(ctx, weights).Error(0)
}

func (m *MockSettingsStore) LoadLearnerConfig(ctx context.Context) (ranking.LearnerConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(ranking.LearnerConfig), args.Error(1)
}

func (m *MockSettingsStore) SaveLearnerConfig(ctx context.Context, cfg ranking.LearnerConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *MockSettingsStore) WithTx(_ *sql.Tx) store.SettingsStore { return m }

// emptySettings returns a settings mock with nothing stored.
func emptySettings() *MockSettingsStore {
	m := &MockSettingsStore{}
	m.On("LoadWeights", mock.Anything).Return(ranking.HeuristicWeights{}, store.ErrSettingNotFound)
	m.On("LoadLearnerConfig", mock.Anything).Return(ranking.LearnerConfig{}, store.ErrSettingNotFound)
	return m
}

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recordingEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEmitter) ofType(eventType string) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// staticRebalanceStore returns a fixed history.
type staticRebalanceStore struct {
	history []ranking.RebalanceEvent
	err     error
}

func (s *staticRebalanceStore) Append(context.Context, ranking.RebalanceEvent) error { return nil }

func (s *staticRebalanceStore) ListRecent(_ context.Context, limit int) ([]ranking.RebalanceEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.history) {
		return s.history[:limit], nil
	}
	return s.history, nil
}
