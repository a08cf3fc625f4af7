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

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily creates a new family together with its initial members
func (r *FamilyRepository) CreateFamily(ctx context.Context, family *models.Family) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertFamily(ctx, tx, family); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertFamily(ctx context.Context, q database.DBTX, family *models.Family) error {
	if family.CreatedAt.IsZero() {
		family.CreatedAt = now()
	}
	if family.UpdatedAt.IsZero() {
		family.UpdatedAt = family.CreatedAt
	}

	query := "INSERT INTO families (id, name, referral_code, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
	_, err := q.ExecContext(ctx, query, family.ID, family.Name, family.ReferralCode, family.CreatedAt, family.UpdatedAt)
	if err != nil {
		if q.GetDialect().IsUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to create family: %w", err)
	}

	query = "INSERT INTO family_members (family_id, user_id, joined_at) VALUES (?, ?, ?)"
	for _, userID := range family.MemberIDs {
		if _, err := q.ExecContext(ctx, query, family.ID, userID, family.CreatedAt); err != nil {
			return fmt.Errorf("failed to add family member: %w", err)
		}
	}
	return nil
}

// GetFamilyByID retrieves a family and its member set
func (r *FamilyRepository) GetFamilyByID(ctx context.Context, id string) (*models.Family, error) {
	return r.getFamily(ctx, "id = ?", id)
}

// GetFamilyByReferralCode retrieves a family by its referral code
func (r *FamilyRepository) GetFamilyByReferralCode(ctx context.Context, code string) (*models.Family, error) {
	return r.getFamily(ctx, "referral_code = ?", code)
}

// FindFamilyByMember returns the family the user most recently joined
func (r *FamilyRepository) FindFamilyByMember(ctx context.Context, userID string) (*models.Family, error) {
	query := `
		SELECT family_id FROM family_members
		WHERE user_id = ?
		ORDER BY joined_at DESC
		LIMIT 1
	`
	var familyID string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&familyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find family by member: %w", err)
	}
	return r.GetFamilyByID(ctx, familyID)
}

func (r *FamilyRepository) getFamily(ctx context.Context, where string, args ...interface{}) (*models.Family, error) {
	query := "SELECT id, name, referral_code, created_at, updated_at FROM families WHERE " + where
	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&family.ID,
		&family.Name,
		&family.ReferralCode,
		&family.CreatedAt,
		&family.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	members, err := r.memberIDs(ctx, family.ID)
	if err != nil {
		return nil, err
	}
	family.MemberIDs = members
	return family, nil
}

func (r *FamilyRepository) memberIDs(ctx context.Context, familyID string) ([]string, error) {
	query := "SELECT user_id FROM family_members WHERE family_id = ? ORDER BY joined_at ASC, user_id ASC"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}

// AddMember adds a user to a family. Adding an existing member is a no-op.
func (r *FamilyRepository) AddMember(ctx context.Context, familyID, userID string) error {
	if _, err := r.GetFamilyByID(ctx, familyID); err != nil {
		return err
	}

	ts := now()
	query := "INSERT INTO family_members (family_id, user_id, joined_at) VALUES (?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, familyID, userID, ts); err != nil {
		if r.db.IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to add family member: %w", err)
	}
	return r.touch(ctx, familyID, ts)
}

// RemoveMember removes a user from a family
func (r *FamilyRepository) RemoveMember(ctx context.Context, familyID, userID string) error {
	query := "DELETE FROM family_members WHERE family_id = ? AND user_id = ?"
	res, err := r.db.ExecContext(ctx, query, familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	return r.touch(ctx, familyID, now())
}

// RemoveMemberElsewhere drops the user from every family except keepFamilyID
func (r *FamilyRepository) RemoveMemberElsewhere(ctx context.Context, userID, keepFamilyID string) error {
	query := "DELETE FROM family_members WHERE user_id = ? AND family_id <> ?"
	if _, err := r.db.ExecContext(ctx, query, userID, keepFamilyID); err != nil {
		return fmt.Errorf("failed to remove stale memberships: %w", err)
	}
	return nil
}

func (r *FamilyRepository) touch(ctx context.Context, familyID string, ts interface{}) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE families SET updated_at = ? WHERE id = ?", ts, familyID); err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}
