package service

import (
	"context"
	"errors"
	"fmt"

	"familytodo/internal/models"
	"familytodo/internal/storage"
)

// FamilyTodoOp names a shared-task operation for authorization messages
type FamilyTodoOp int

const (
	OpViewTodos FamilyTodoOp = iota
	OpCreateTodo
	OpUpdateTodo
	OpDeleteTodo
)

func (op FamilyTodoOp) forbidden() error {
	switch op {
	case OpViewTodos:
		return ErrForbiddenView
	case OpCreateTodo:
		return ErrForbiddenCreate
	default:
		return ErrForbidden
	}
}

// MembershipService gates family-scoped operations on current membership.
// The family's member set is the only input; the user's family
// back-reference is never consulted.
type MembershipService struct {
	families storage.FamilyStore
}

// NewMembershipService creates a new membership service
func NewMembershipService(families storage.FamilyStore) *MembershipService {
	return &MembershipService{families: families}
}

// LoadFamily returns the family or ErrFamilyNotFound
func (s *MembershipService) LoadFamily(ctx context.Context, familyID string) (*models.Family, error) {
	family, err := s.families.GetFamilyByID(ctx, familyID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrFamilyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// CanAccessFamily reports whether userID is in the family's member set
func (s *MembershipService) CanAccessFamily(ctx context.Context, userID, familyID string) (bool, error) {
	family, err := s.LoadFamily(ctx, familyID)
	if err != nil {
		return false, err
	}
	return family.HasMember(userID), nil
}

// AuthorizeFamilyTodoOp rejects non-members with Forbidden and unknown
// families with NotFound. Callers must not touch the store on error.
func (s *MembershipService) AuthorizeFamilyTodoOp(ctx context.Context, userID, familyID string, op FamilyTodoOp) error {
	ok, err := s.CanAccessFamily(ctx, userID, familyID)
	if err != nil {
		return err
	}
	if !ok {
		return op.forbidden()
	}
	return nil
}
