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

const todoColumns = "id, user_id, text, description, deadline, done, created_at, updated_at"

// TodoRepository handles database operations for personal tasks. Every
// statement filters by owner as well as id.
type TodoRepository struct {
	db *database.DB
}

// NewTodoRepository creates a new todo repository
func NewTodoRepository(db *database.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

// ListTodos returns the owner's tasks, newest first
func (r *TodoRepository) ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE user_id = ? ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

// CreateTodo inserts a new personal task
func (r *TodoRepository) CreateTodo(ctx context.Context, todo *models.Todo) error {
	return insertTodo(ctx, r.db, todo)
}

func insertTodo(ctx context.Context, q database.DBTX, todo *models.Todo) error {
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = now()
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = todo.CreatedAt
	}

	query := "INSERT INTO todos (" + todoColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := q.ExecContext(ctx, query,
		todo.ID,
		todo.UserID,
		todo.Text,
		todo.Description,
		nullTime(todo.Deadline),
		todo.Done,
		todo.CreatedAt,
		todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

// GetTodo retrieves a task owned by ownerID
func (r *TodoRepository) GetTodo(ctx context.Context, id, ownerID string) (*models.Todo, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE id = ? AND user_id = ?"
	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return todo, nil
}

// UpdateTodo applies a patch to a task owned by ownerID
func (r *TodoRepository) UpdateTodo(ctx context.Context, id, ownerID string, patch models.TodoPatch) (*models.Todo, error) {
	todo, err := r.GetTodo(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	patch.Apply(todo)
	todo.UpdatedAt = now()

	query := `
		UPDATE todos
		SET text = ?, description = ?, deadline = ?, done = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		todo.Text, todo.Description, nullTime(todo.Deadline), todo.Done, todo.UpdatedAt, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return todo, nil
}

// DeleteTodo removes a task owned by ownerID
func (r *TodoRepository) DeleteTodo(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return expectAffected(res)
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	todo := &models.Todo{}
	var deadline sql.NullTime
	err := row.Scan(
		&todo.ID,
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
