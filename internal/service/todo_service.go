package service

import (
	"context"
	"errors"
	"fmt"

	"familytodo/internal/models"
	"familytodo/internal/storage"

	"github.com/google/uuid"
)

// TodoService manages personal tasks. Every operation is scoped to the
// requesting user; a foreign task id reads as missing.
type TodoService struct {
	todos storage.TodoStore
}

// NewTodoService creates a new todo service
func NewTodoService(todos storage.TodoStore) *TodoService {
	return &TodoService{todos: todos}
}

// List returns the user's tasks, newest first
func (s *TodoService) List(ctx context.Context, userID string) ([]models.Todo, error) {
	todos, err := s.todos.ListTodos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, nil
}

// Create adds a task owned by userID
func (s *TodoService) Create(ctx context.Context, userID string, input models.TodoInput) (*models.Todo, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	todo := &models.Todo{
		ID:          uuid.NewString(),
		UserID:      userID,
		Text:        input.Text,
		Description: input.Description,
		Deadline:    input.Deadline,
	}
	if err := s.todos.CreateTodo(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	return todo, nil
}

// Update applies a partial update to one of the user's tasks
func (s *TodoService) Update(ctx context.Context, userID, id string, patch models.TodoPatch) (*models.Todo, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	todo, err := s.todos.UpdateTodo(ctx, id, userID, patch)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrTodoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return todo, nil
}

// Delete removes one of the user's tasks
func (s *TodoService) Delete(ctx context.Context, userID, id string) error {
	err := s.todos.DeleteTodo(ctx, id, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrTodoNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}
