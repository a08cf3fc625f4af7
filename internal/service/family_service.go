package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"familytodo/internal/credentials"
	"familytodo/internal/metrics"
	"familytodo/internal/models"
	"familytodo/internal/storage"
	"familytodo/internal/validation"

	"github.com/google/uuid"
)

// FamilyService handles family lifecycle operations
type FamilyService struct {
	families storage.FamilyStore
	users    storage.UserStore
	email    *EmailService
	newCode  func() (string, error)
}

// NewFamilyService creates a new family service. email may be nil when
// invitations are not needed.
func NewFamilyService(families storage.FamilyStore, users storage.UserStore, email *EmailService) *FamilyService {
	return &FamilyService{
		families: families,
		users:    users,
		email:    email,
		newCode:  credentials.GenerateReferralCode,
	}
}

// Create makes a new family with the creator as its only member
func (s *FamilyService) Create(ctx context.Context, userID, name string) (*models.FamilyWithMembers, error) {
	if validation.ValidateName(name) != nil {
		return nil, ErrFamilyNameRequired
	}

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate referral code: %w", err)
	}

	family := &models.Family{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		ReferralCode: code,
		MemberIDs:    []string{userID},
	}
	if err := s.families.CreateFamily(ctx, family); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrReferralCollision
		}
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	s.settleMembership(ctx, userID, family.ID)
	metrics.MembershipChanged("create")
	slog.InfoContext(ctx, "family created", "family_id", family.ID, "user_id", userID)

	return s.populate(ctx, family)
}

// Join adds the user to the family owning code. Joining twice is a no-op.
func (s *FamilyService) Join(ctx context.Context, userID, code string) (*models.FamilyWithMembers, error) {
	code = credentials.NormalizeReferralCode(code)
	if code == "" {
		return nil, ErrFamilyNotFound
	}

	family, err := s.families.GetFamilyByReferralCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrFamilyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	if !family.HasMember(userID) {
		if err := s.families.AddMember(ctx, family.ID, userID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrFamilyNotFound
			}
			return nil, fmt.Errorf("failed to join family: %w", err)
		}
		family.MemberIDs = append(family.MemberIDs, userID)
		metrics.MembershipChanged("join")
		slog.InfoContext(ctx, "family joined", "family_id", family.ID, "user_id", userID)
	}

	s.settleMembership(ctx, userID, family.ID)
	return s.populate(ctx, family)
}

// settleMembership points the back-reference at familyID and drops the user
// from any other family. Both writes are best-effort; the member set stays
// authoritative and Mine repairs the back-reference.
func (s *FamilyService) settleMembership(ctx context.Context, userID, familyID string) {
	if err := s.users.SetUserFamily(ctx, userID, familyID); err != nil {
		slog.WarnContext(ctx, "failed to set family back-reference", "user_id", userID, "family_id", familyID, "error", err)
	}
	if err := s.families.RemoveMemberElsewhere(ctx, userID, familyID); err != nil {
		slog.WarnContext(ctx, "failed to remove stale memberships", "user_id", userID, "error", err)
	}
}

// Mine returns the family whose member set contains the user
func (s *FamilyService) Mine(ctx context.Context, userID string) (*models.FamilyWithMembers, error) {
	family, err := s.families.FindFamilyByMember(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		s.repairBackReference(ctx, userID, "")
		return nil, ErrNoFamily
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find family: %w", err)
	}

	s.repairBackReference(ctx, userID, family.ID)
	return s.populate(ctx, family)
}

func (s *FamilyService) repairBackReference(ctx context.Context, userID, familyID string) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil || user.FamilyID == familyID {
		return
	}
	if err := s.users.SetUserFamily(ctx, userID, familyID); err != nil {
		slog.WarnContext(ctx, "failed to repair family back-reference", "user_id", userID, "error", err)
		return
	}
	slog.DebugContext(ctx, "repaired family back-reference", "user_id", userID, "family_id", familyID)
}

// Leave removes the user from their family
func (s *FamilyService) Leave(ctx context.Context, userID string) error {
	family, err := s.families.FindFamilyByMember(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNoFamily
	}
	if err != nil {
		return fmt.Errorf("failed to find family: %w", err)
	}

	if err := s.families.RemoveMember(ctx, family.ID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoFamily
		}
		return fmt.Errorf("failed to leave family: %w", err)
	}
	if err := s.users.SetUserFamily(ctx, userID, ""); err != nil {
		slog.WarnContext(ctx, "failed to clear family back-reference", "user_id", userID, "error", err)
	}

	metrics.MembershipChanged("leave")
	slog.InfoContext(ctx, "family left", "family_id", family.ID, "user_id", userID)
	return nil
}

// Invite emails the referral code of the user's family to address
func (s *FamilyService) Invite(ctx context.Context, userID, address string) error {
	if validation.ValidateEmail(address) != nil {
		return ErrInviteEmailInvalid
	}
	if s.email == nil || !s.email.IsEnabled() {
		return ErrEmailDisabled
	}

	family, err := s.families.FindFamilyByMember(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNoFamily
	}
	if err != nil {
		return fmt.Errorf("failed to find family: %w", err)
	}

	inviter, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get inviter: %w", err)
	}
	name := inviter.DisplayName
	if name == "" {
		name = inviter.Username
	}

	if err := s.email.SendFamilyInvite(ctx, validation.NormalizeEmail(address), name, family.Name, family.ReferralCode); err != nil {
		return fmt.Errorf("failed to send invite: %w", err)
	}
	return nil
}

// populate attaches member summaries in member-set order. Members whose
// account no longer exists are skipped.
func (s *FamilyService) populate(ctx context.Context, family *models.Family) (*models.FamilyWithMembers, error) {
	users, err := s.users.GetUsersByIDs(ctx, family.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load family members: %w", err)
	}

	members := make([]models.UserSummary, 0, len(family.MemberIDs))
	for _, id := range family.MemberIDs {
		if u, ok := users[id]; ok {
			members = append(members, u.Summary())
		}
	}
	return &models.FamilyWithMembers{Family: *family, Members: members}, nil
}
