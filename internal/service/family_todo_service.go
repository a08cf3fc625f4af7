package service

import (
	"context"
	"errors"
	"fmt"

	"familytodo/internal/models"
	"familytodo/internal/storage"

	"github.com/google/uuid"
)

// FamilyTodoService manages tasks shared by a family. Any current member may
// read, add, toggle, edit or delete any task of the family.
type FamilyTodoService struct {
	todos      storage.FamilyTodoStore
	users      storage.UserStore
	membership *MembershipService
}

// NewFamilyTodoService creates a new family todo service
func NewFamilyTodoService(todos storage.FamilyTodoStore, users storage.UserStore, membership *MembershipService) *FamilyTodoService {
	return &FamilyTodoService{todos: todos, users: users, membership: membership}
}

// List returns the family's tasks newest first, each with its creator
func (s *FamilyTodoService) List(ctx context.Context, userID, familyID string) ([]models.FamilyTodoWithCreator, error) {
	if err := s.membership.AuthorizeFamilyTodoOp(ctx, userID, familyID, OpViewTodos); err != nil {
		return nil, err
	}

	todos, err := s.todos.ListFamilyTodos(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list family todos: %w", err)
	}
	return s.withCreators(ctx, todos...)
}

// Create adds a task to the family, open and attributed to userID
func (s *FamilyTodoService) Create(ctx context.Context, userID, familyID string, input models.TodoInput) (*models.FamilyTodoWithCreator, error) {
	if err := s.membership.AuthorizeFamilyTodoOp(ctx, userID, familyID, OpCreateTodo); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	todo := models.FamilyTodo{
		ID:          uuid.NewString(),
		FamilyID:    familyID,
		UserID:      userID,
		Text:        input.Text,
		Description: input.Description,
		Deadline:    input.Deadline,
	}
	if err := s.todos.CreateFamilyTodo(ctx, &todo); err != nil {
		return nil, fmt.Errorf("failed to create family todo: %w", err)
	}
	return s.one(ctx, todo)
}

// Update patches a task of the family. Setting Done moves the task between
// Open and Done in either direction.
func (s *FamilyTodoService) Update(ctx context.Context, userID, familyID, todoID string, patch models.TodoPatch) (*models.FamilyTodoWithCreator, error) {
	if err := s.membership.AuthorizeFamilyTodoOp(ctx, userID, familyID, OpUpdateTodo); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	todo, err := s.todos.UpdateFamilyTodo(ctx, familyID, todoID, patch)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrFamilyTodoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update family todo: %w", err)
	}
	return s.one(ctx, *todo)
}

// Delete removes a task of the family
func (s *FamilyTodoService) Delete(ctx context.Context, userID, familyID, todoID string) error {
	if err := s.membership.AuthorizeFamilyTodoOp(ctx, userID, familyID, OpDeleteTodo); err != nil {
		return err
	}

	err := s.todos.DeleteFamilyTodo(ctx, familyID, todoID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrFamilyTodoNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete family todo: %w", err)
	}
	return nil
}

func (s *FamilyTodoService) one(ctx context.Context, todo models.FamilyTodo) (*models.FamilyTodoWithCreator, error) {
	out, err := s.withCreators(ctx, todo)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// withCreators attaches creator summaries. A creator whose account is gone
// is left nil.
func (s *FamilyTodoService) withCreators(ctx context.Context, todos ...models.FamilyTodo) ([]models.FamilyTodoWithCreator, error) {
	ids := make([]string, 0, len(todos))
	seen := make(map[string]bool, len(todos))
	for _, t := range todos {
		if !seen[t.UserID] {
			seen[t.UserID] = true
			ids = append(ids, t.UserID)
		}
	}

	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load todo creators: %w", err)
	}

	out := make([]models.FamilyTodoWithCreator, 0, len(todos))
	for _, t := range todos {
		item := models.FamilyTodoWithCreator{Todo: t}
		if u, ok := users[t.UserID]; ok {
			summary := u.Summary()
			item.Creator = &summary
		}
		out = append(out, item)
	}
	return out, nil
}
