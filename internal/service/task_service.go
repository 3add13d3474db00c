package service

import (
	"context"
	"fmt"

	"tareas_api/internal/domain"
)

// TaskService runs task CRUD on behalf of an already authenticated owner.
// Every call takes the owner id explicitly; nothing is read from ambient state.
type TaskService struct {
	tasks  TaskStore
	events TaskEvents
}

func NewTaskService(tasks TaskStore, events TaskEvents) *TaskService {
	if events == nil {
		events = nopEvents{}
	}
	return &TaskService{tasks: tasks, events: events}
}

// List returns the owner's tasks, newest first.
func (s *TaskService) List(ctx context.Context, ownerID int64) ([]*domain.Task, error) {
	tasks, err := s.tasks.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, id int64) (*domain.Task, error) {
	return s.tasks.Get(ctx, id, ownerID)
}

func (s *TaskService) Create(ctx context.Context, ownerID int64, in TaskPatch) (*domain.Task, error) {
	t := &domain.Task{UserID: ownerID}
	if err := in.apply(t, true); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.events.Publish(ownerID, domain.TaskEvent{Type: domain.TaskEventCreated, TaskID: t.ID, Task: t})
	return t, nil
}

// Update applies a partial change. Fields missing from the patch keep their
// stored values; the owner can never change.
func (s *TaskService) Update(ctx context.Context, ownerID, id int64, patch TaskPatch) (*domain.Task, error) {
	t, err := s.tasks.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := patch.apply(t, false); err != nil {
		return nil, err
	}
	t.ID, t.UserID = id, ownerID

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	s.events.Publish(ownerID, domain.TaskEvent{Type: domain.TaskEventUpdated, TaskID: t.ID, Task: t})
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.tasks.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.events.Publish(ownerID, domain.TaskEvent{Type: domain.TaskEventDeleted, TaskID: id})
	return nil
}
