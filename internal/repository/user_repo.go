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

const userColumns = `id, email, username, credential_kind, COALESCE(password_hash, ''),
	COALESCE(provider, ''), COALESCE(external_id, ''), COALESCE(display_name, ''),
	COALESCE(avatar, ''), COALESCE(family_id, ''), created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user. Email or username collisions yield
// storage.ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return insertUser(ctx, r.db, user)
}

func insertUser(ctx context.Context, q database.DBTX, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	query := `
		INSERT INTO users (id, email, username, credential_kind, password_hash, provider,
			external_id, display_name, avatar, family_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		string(user.Credential.Kind),
		nullString(user.Credential.PasswordHash),
		nullString(user.ExternalProvider),
		nullString(user.ExternalID),
		nullString(user.DisplayName),
		nullString(user.Avatar),
		nullString(user.FamilyID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if q.GetDialect().IsUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "email = ?", email)
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, "username = ?", username)
}

// GetUserByExternalID retrieves a user by their linked provider subject
func (r *UserRepository) GetUserByExternalID(ctx context.Context, provider, subject string) (*models.User, error) {
	return r.getUser(ctx, "provider = ? AND external_id = ?", provider, subject)
}

func (r *UserRepository) getUser(ctx context.Context, where string, args ...interface{}) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUsersByIDs loads several users at once, keyed by id. Unknown ids are
// omitted from the result.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := "SELECT " + userColumns + " FROM users WHERE id IN (" + placeholders(len(ids)) + ")"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}

// LinkExternalIdentity attaches a provider subject to an existing account
// and refreshes the profile fields it supplies
func (r *UserRepository) LinkExternalIdentity(ctx context.Context, userID, provider, subject, displayName, avatar string) error {
	query := `
		UPDATE users
		SET provider = ?, external_id = ?,
			display_name = COALESCE(?, display_name),
			avatar = COALESCE(?, avatar),
			updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, provider, subject, nullString(displayName), nullString(avatar), now(), userID)
	if err != nil {
		if r.db.IsUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to link external identity: %w", err)
	}
	return expectAffected(res)
}

// SetUserFamily updates the family back-reference; an empty id clears it
func (r *UserRepository) SetUserFamily(ctx context.Context, userID, familyID string) error {
	query := "UPDATE users SET family_id = ?, updated_at = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, nullString(familyID), now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set user family: %w", err)
	}
	return expectAffected(res)
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var kind, hash, provider string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&kind,
		&hash,
		&provider,
		&user.ExternalID,
		&user.DisplayName,
		&user.Avatar,
		&user.FamilyID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.ExternalProvider = provider
	if models.CredentialKind(kind) == models.CredentialExternal {
		user.Credential = models.ExternalCredential(provider)
	} else {
		user.Credential = models.PasswordCredential(hash)
	}
	return user, nil
}

// expectAffected turns an update that matched nothing into storage.ErrNotFound
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
