package repository

import (
	"context"
	"fmt"
	"time"

	"familytodo/internal/database"
	"familytodo/internal/storage"
)

// SnapshotVersion is written into every exported snapshot
const SnapshotVersion = 1

// Store is the SQL implementation of storage.Store
type Store struct {
	*UserRepository
	*FamilyRepository
	*TodoRepository
	*FamilyTodoRepository
	db *database.DB
}

var _ storage.Store = (*Store)(nil)

// NewStore wires every repository to one connection
func NewStore(db *database.DB) *Store {
	return &Store{
		UserRepository:       NewUserRepository(db),
		FamilyRepository:     NewFamilyRepository(db),
		TodoRepository:       NewTodoRepository(db),
		FamilyTodoRepository: NewFamilyTodoRepository(db),
		db:                   db,
	}
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Dump exports every table
func (s *Store) Dump(ctx context.Context) (*storage.Snapshot, error) {
	snapshot := &storage.Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		snapshot.Users = append(snapshot.Users, *user)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	familyIDs, err := s.allIDs(ctx, "SELECT id FROM families ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to export families: %w", err)
	}
	for _, id := range familyIDs {
		family, err := s.GetFamilyByID(ctx, id)
		if err != nil {
			return nil, err
		}
		snapshot.Families = append(snapshot.Families, *family)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT "+todoColumns+" FROM todos ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to export todos: %w", err)
	}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		snapshot.Todos = append(snapshot.Todos, *todo)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT "+familyTodoColumns+" FROM family_todos ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to export family todos: %w", err)
	}
	for rows.Next() {
		todo, err := scanFamilyTodo(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan family todo: %w", err)
		}
		snapshot.FamilyTodos = append(snapshot.FamilyTodos, *todo)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (s *Store) allIDs(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Restore imports a snapshot in one transaction
func (s *Store) Restore(ctx context.Context, snapshot *storage.Snapshot, clear bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if clear {
		// Children first so foreign keys never dangle
		for _, table := range []string{"family_todos", "todos", "family_members", "families", "users"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
	}

	for i := range snapshot.Users {
		if err := insertUser(ctx, tx, &snapshot.Users[i]); err != nil {
			return fmt.Errorf("user %s: %w", snapshot.Users[i].ID, err)
		}
	}
	for i := range snapshot.Families {
		if err := insertFamily(ctx, tx, &snapshot.Families[i]); err != nil {
			return fmt.Errorf("family %s: %w", snapshot.Families[i].ID, err)
		}
	}
	for i := range snapshot.Todos {
		if err := insertTodo(ctx, tx, &snapshot.Todos[i]); err != nil {
			return fmt.Errorf("todo %s: %w", snapshot.Todos[i].ID, err)
		}
	}
	for i := range snapshot.FamilyTodos {
		if err := insertFamilyTodo(ctx, tx, &snapshot.FamilyTodos[i]); err != nil {
			return fmt.Errorf("family todo %s: %w", snapshot.FamilyTodos[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
