package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"familytodo/internal/database"
	"familytodo/internal/models"
	"familytodo/internal/storage"
)

const familyTodoColumns = "id, family_id, user_id, text, description, deadline, done, created_at, updated_at"

// FamilyTodoRepository handles database operations for shared family tasks
type FamilyTodoRepository struct {
	db *database.DB
}

// NewFamilyTodoRepository creates a new family todo repository
func NewFamilyTodoRepository(db *database.DB) *FamilyTodoRepository {
	return &FamilyTodoRepository{db: db}
}

// ListFamilyTodos returns the family's tasks, newest first
func (r *FamilyTodoRepository) ListFamilyTodos(ctx context.Context, familyID string) ([]models.FamilyTodo, error) {
	query := "SELECT " + familyTodoColumns + " FROM family_todos WHERE family_id = ? ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family todos: %w", err)
	}
	defer rows.Close()

	todos := []models.FamilyTodo{}
	for rows.Next() {
		todo, err := scanFamilyTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family todo: %w", err)
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

// CreateFamilyTodo inserts a new shared task
func (r *FamilyTodoRepository) CreateFamilyTodo(ctx context.Context, todo *models.FamilyTodo) error {
	return insertFamilyTodo(ctx, r.db, todo)
}

func insertFamilyTodo(ctx context.Context, q database.DBTX, todo *models.FamilyTodo) error {
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = now()
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = todo.CreatedAt
	}

	query := "INSERT INTO family_todos (" + familyTodoColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := q.ExecContext(ctx, query,
		todo.ID,
		todo.FamilyID,
		todo.UserID,
		todo.Text,
		todo.Description,
		nullTime(todo.Deadline),
		todo.Done,
		todo.CreatedAt,
		todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create family todo: %w", err)
	}
	return nil
}

func (r *FamilyTodoRepository) getFamilyTodo(ctx context.Context, familyID, todoID string) (*models.FamilyTodo, error) {
	query := "SELECT " + familyTodoColumns + " FROM family_todos WHERE id = ? AND family_id = ?"
	todo, err := scanFamilyTodo(r.db.QueryRowContext(ctx, query, todoID, familyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family todo: %w", err)
	}
	return todo, nil
}

// UpdateFamilyTodo applies a patch to a task of the given family
func (r *FamilyTodoRepository) UpdateFamilyTodo(ctx context.Context, familyID, todoID string, patch models.TodoPatch) (*models.FamilyTodo, error) {
	todo, err := r.getFamilyTodo(ctx, familyID, todoID)
	if err != nil {
		return nil, err
	}
	patch.ApplyFamily(todo)
	todo.UpdatedAt = now()

	query := `
		UPDATE family_todos
		SET text = ?, description = ?, deadline = ?, done = ?, updated_at = ?
		WHERE id = ? AND family_id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		todo.Text, todo.Description, nullTime(todo.Deadline), todo.Done, todo.UpdatedAt, todoID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to update family todo: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return todo, nil
}

// DeleteFamilyTodo removes a task of the given family
func (r *FamilyTodoRepository) DeleteFamilyTodo(ctx context.Context, familyID, todoID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM family_todos WHERE id = ? AND family_id = ?", todoID, familyID)
	if err != nil {
		return fmt.Errorf("failed to delete family todo: %w", err)
	}
	return expectAffected(res)
}

func scanFamilyTodo(row rowScanner) (*models.FamilyTodo, error) {
	todo := &models.FamilyTodo{}
	var deadline sql.NullTime
	err := row.Scan(
		&todo.ID,
		&todo.FamilyID,
		&todo.UserID,
		&todo.Text,
		&todo.Description,
		&deadline,
		&todo.Done,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	todo.Deadline = timePtr(deadline)
	return todo, nil
}
