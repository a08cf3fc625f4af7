// Package storage defines the persistence contracts shared by the SQL and
// MongoDB backends.
package storage

import (
	"context"
	"errors"
	"time"

	"familytodo/internal/models"
)

var (
	// ErrNotFound is returned when no record matches the lookup
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")
)

// UserStore persists user accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByExternalID(ctx context.Context, provider, subject string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	// LinkExternalIdentity attaches a provider subject and profile data to an
	// existing account.
	LinkExternalIdentity(ctx context.Context, userID, provider, subject, displayName, avatar string) error
	// SetUserFamily updates the advisory family back-reference. An empty
	// familyID clears it.
	SetUserFamily(ctx context.Context, userID, familyID string) error
}

// FamilyStore persists families and their member sets
type FamilyStore interface {
	// CreateFamily inserts the family with its initial member set. A referral
	// code collision yields ErrDuplicate.
	CreateFamily(ctx context.Context, family *models.Family) error
	GetFamilyByID(ctx context.Context, id string) (*models.Family, error)
	GetFamilyByReferralCode(ctx context.Context, code string) (*models.Family, error)
	// FindFamilyByMember returns the family whose member set contains userID.
	FindFamilyByMember(ctx context.Context, userID string) (*models.Family, error)
	// AddMember is idempotent: adding an existing member is a no-op.
	AddMember(ctx context.Context, familyID, userID string) error
	RemoveMember(ctx context.Context, familyID, userID string) error
	// RemoveMemberElsewhere drops userID from every family except keepFamilyID.
	RemoveMemberElsewhere(ctx context.Context, userID, keepFamilyID string) error
}

// TodoStore persists personal tasks. Every lookup by id also filters by owner
// so a foreign task is indistinguishable from a missing one.
type TodoStore interface {
	ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error)
	CreateTodo(ctx context.Context, todo *models.Todo) error
	GetTodo(ctx context.Context, id, ownerID string) (*models.Todo, error)
	UpdateTodo(ctx context.Context, id, ownerID string, patch models.TodoPatch) (*models.Todo, error)
	DeleteTodo(ctx context.Context, id, ownerID string) error
}

// FamilyTodoStore persists shared tasks scoped to a family
type FamilyTodoStore interface {
	ListFamilyTodos(ctx context.Context, familyID string) ([]models.FamilyTodo, error)
	CreateFamilyTodo(ctx context.Context, todo *models.FamilyTodo) error
	UpdateFamilyTodo(ctx context.Context, familyID, todoID string, patch models.TodoPatch) (*models.FamilyTodo, error)
	DeleteFamilyTodo(ctx context.Context, familyID, todoID string) error
}

// Snapshot is a backend-neutral copy of every record
type Snapshot struct {
	Version     int                 `json:"version"`
	ExportedAt  time.Time           `json:"exported_at"`
	Users       []models.User       `json:"users"`
	Families    []models.Family     `json:"families"`
	Todos       []models.Todo       `json:"todos"`
	FamilyTodos []models.FamilyTodo `json:"family_todos"`
}

// Dumper exports and restores whole datasets
type Dumper interface {
	Dump(ctx context.Context) (*Snapshot, error)
	// Restore inserts every record of the snapshot, optionally wiping
	// existing data first.
	Restore(ctx context.Context, snapshot *Snapshot, clear bool) error
}

// Store aggregates every contract a backend provides
type Store interface {
	UserStore
	FamilyStore
	TodoStore
	FamilyTodoStore
	Dumper
	Ping(ctx context.Context) error
	Close() error
}
