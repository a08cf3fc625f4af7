package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"familytodo/internal/credentials"
)

func TestFamilyLifecycle(t *testing.T) {
	store := newTestStore(t)
	auth := newTestAuthService(store)
	families := NewFamilyService(store, store, nil)
	ctx := context.Background()

	alice := mustRegister(t, auth, "alice@example.com", "alice")
	bob := mustRegister(t, auth, "bob@example.com", "bob")

	if _, err := families.Create(ctx, alice.ID, "   "); !errors.Is(err, ErrFamilyNameRequired) {
		t.Fatalf("Create(blank) error = %v, want ErrFamilyNameRequired", err)
	}

	created, err := families.Create(ctx, alice.ID, " Smiths ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Family.Name != "Smiths" {
		t.Errorf("name = %q, want trimmed", created.Family.Name)
	}
	if len(created.Family.ReferralCode) != credentials.ReferralCodeLength {
		t.Errorf("referral code %q has wrong length", created.Family.ReferralCode)
	}
	if len(created.Members) != 1 || created.Members[0].ID != alice.ID {
		t.Fatalf("members = %+v, want only alice", created.Members)
	}

	t.Run("join by lowercase code", func(t *testing.T) {
		joined, err := families.Join(ctx, bob.ID, strings.ToLower(created.Family.ReferralCode))
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		if len(joined.Members) != 2 || joined.Members[1].Username != "bob" {
			t.Fatalf("members = %+v, want alice then bob", joined.Members)
		}
	})

	t.Run("join twice is a no-op", func(t *testing.T) {
		joined, err := families.Join(ctx, bob.ID, created.Family.ReferralCode)
		if err != nil {
			t.Fatalf("Join() error = %v", err)
		}
		if len(joined.Members) != 2 {
			t.Errorf("member count = %d, want 2", len(joined.Members))
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		for _, code := range []string{"", "ZZZZZZZZ"} {
			if _, err := families.Join(ctx, bob.ID, code); !errors.Is(err, ErrFamilyNotFound) {
				t.Errorf("Join(%q) error = %v, want ErrFamilyNotFound", code, err)
			}
		}
	})

	t.Run("mine", func(t *testing.T) {
		mine, err := families.Mine(ctx, bob.ID)
		if err != nil {
			t.Fatalf("Mine() error = %v", err)
		}
		if mine.Family.ID != created.Family.ID {
			t.Errorf("Mine() family = %s, want %s", mine.Family.ID, created.Family.ID)
		}
	})

	t.Run("leave", func(t *testing.T) {
		if err := families.Leave(ctx, bob.ID); err != nil {
			t.Fatalf("Leave() error = %v", err)
		}
		if _, err := families.Mine(ctx, bob.ID); !errors.Is(err, ErrNoFamily) {
			t.Errorf("Mine() after leave error = %v, want ErrNoFamily", err)
		}
		if err := families.Leave(ctx, bob.ID); !errors.Is(err, ErrNoFamily) {
			t.Errorf("second Leave() error = %v, want ErrNoFamily", err)
		}
		user, _ := store.GetUserByID(ctx, bob.ID)
		if user.FamilyID != "" {
			t.Errorf("back-reference = %q, want cleared", user.FamilyID)
		}
	})
}

func TestFamilyCreateMovesMembership(t *testing.T) {
	store := newTestStore(t)
	auth := newTestAuthService(store)
	families := NewFamilyService(store, store, nil)
	ctx := context.Background()

	alice := mustRegister(t, auth, "alice@example.com", "alice")
	first, err := families.Create(ctx, alice.ID, "First")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := families.Create(ctx, alice.ID, "Second")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	old, err := store.GetFamilyByID(ctx, first.Family.ID)
	if err != nil {
		t.Fatalf("GetFamilyByID() error = %v", err)
	}
	if old.HasMember(alice.ID) {
		t.Error("user should have been removed from the previous family")
	}

	mine, err := families.Mine(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Mine() error = %v", err)
	}
	if mine.Family.ID != second.Family.ID {
		t.Errorf("Mine() = %s, want newest family %s", mine.Family.ID, second.Family.ID)
	}
}

func TestFamilyReferralCollision(t *testing.T) {
	store := newTestStore(t)
	auth := newTestAuthService(store)
	families := NewFamilyService(store, store, nil)
	families.newCode = func() (string, error) { return "ABCDEFGH", nil }
	ctx := context.Background()

	alice := mustRegister(t, auth, "alice@example.com", "alice")
	bob := mustRegister(t, auth, "bob@example.com", "bob")

	if _, err := families.Create(ctx, alice.ID, "One"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := families.Create(ctx, bob.ID, "Two"); !errors.Is(err, ErrReferralCollision) {
		t.Fatalf("Create() error = %v, want ErrReferralCollision", err)
	}
	if _, err := families.Mine(ctx, bob.ID); !errors.Is(err, ErrNoFamily) {
		t.Errorf("collision must not leave bob in a family, got %v", err)
	}
}

func TestMineRepairsBackReference(t *testing.T) {
	store := newTestStore(t)
	auth := newTestAuthService(store)
	families := NewFamilyService(store, store, nil)
	ctx := context.Background()

	alice := mustRegister(t, auth, "alice@example.com", "alice")
	created, err := families.Create(ctx, alice.ID, "Smiths")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.SetUserFamily(ctx, alice.ID, "stale"); err != nil {
		t.Fatalf("SetUserFamily() error = %v", err)
	}
	if _, err := families.Mine(ctx, alice.ID); err != nil {
		t.Fatalf("Mine() error = %v", err)
	}

	user, err := store.GetUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.FamilyID != created.Family.ID {
		t.Errorf("back-reference = %q, want %q", user.FamilyID, created.Family.ID)
	}
}

func TestFamilyInvite(t *testing.T) {
	store := newTestStore(t)
	auth := newTestAuthService(store)
	ctx := context.Background()
	alice := mustRegister(t, auth, "alice@example.com", "alice")

	t.Run("email disabled", func(t *testing.T) {
		families := NewFamilyService(store, store, NewEmailService(nil))
		if err := families.Invite(ctx, alice.ID, "friend@example.com"); !errors.Is(err, ErrEmailDisabled) {
			t.Fatalf("Invite() error = %v, want ErrEmailDisabled", err)
		}
	})

	mailer := &recordingMailer{}
	families := NewFamilyService(store, store, NewEmailService(mailer))

	t.Run("invalid address", func(t *testing.T) {
		if err := families.Invite(ctx, alice.ID, "not-an-email"); !errors.Is(err, ErrInviteEmailInvalid) {
			t.Fatalf("Invite() error = %v, want ErrInviteEmailInvalid", err)
		}
	})

	t.Run("no family", func(t *testing.T) {
		if err := families.Invite(ctx, alice.ID, "friend@example.com"); !errors.Is(err, ErrNoFamily) {
			t.Fatalf("Invite() error = %v, want ErrNoFamily", err)
		}
	})

	t.Run("sends referral code", func(t *testing.T) {
		created, err := families.Create(ctx, alice.ID, "Smiths")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := families.Invite(ctx, alice.ID, "Friend@Example.com"); err != nil {
			t.Fatalf("Invite() error = %v", err)
		}
		if len(mailer.sent) != 1 {
			t.Fatalf("sent %d messages, want 1", len(mailer.sent))
		}
		msg := mailer.sent[0]
		if msg.To != "friend@example.com" {
			t.Errorf("to = %q", msg.To)
		}
		if !strings.Contains(msg.Subject, "alice") || !strings.Contains(msg.Subject, "Smiths") {
			t.Errorf("subject = %q", msg.Subject)
		}
		if !strings.Contains(msg.TextBody, created.Family.ReferralCode) || !strings.Contains(msg.HTMLBody, created.Family.ReferralCode) {
			t.Error("referral code missing from body")
		}
	})
}
