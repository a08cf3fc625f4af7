package mongodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"familytodo/internal/models"
	"familytodo/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// newTestStore connects to MONGO_TEST_URI and uses a throwaway database
func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := os.Getenv("MONGO_TEST_URI")
	if base == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("familytodo_test_%d", time.Now().UnixNano())
	s, err := Open(ctx, base+"/"+dbName)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		s.users.Database().Drop(context.Background())
		s.Close()
	})
	return s
}

func TestPatchUpdate(t *testing.T) {
	done := false
	deadline := time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)

	update := patchUpdate(models.TodoPatch{Done: &done, ClearDeadline: true})
	set := update["$set"].(bson.M)
	if set["done"] != false {
		t.Errorf("$set.done = %v, want false", set["done"])
	}
	if _, ok := update["$unset"]; !ok {
		t.Error("expected $unset for cleared deadline")
	}

	update = patchUpdate(models.TodoPatch{Deadline: &deadline, ClearDeadline: true})
	if _, ok := update["$unset"]; ok {
		t.Error("new deadline should win over clear")
	}
}

func TestStoreContract(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := &models.User{ID: uuid.NewString(), Email: "alice@example.com", Username: "alice", Credential: models.PasswordCredential("hash")}
	bob := &models.User{ID: uuid.NewString(), Email: "bob@example.com", Username: "bob", Credential: models.PasswordCredential("hash")}
	for _, u := range []*models.User{alice, bob} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}
	dup := &models.User{ID: uuid.NewString(), Email: "alice@example.com", Username: "x", Credential: models.PasswordCredential("h")}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("duplicate email: expected ErrDuplicate, got %v", err)
	}

	family := &models.Family{ID: uuid.NewString(), Name: "Smiths", ReferralCode: "SMITH234", MemberIDs: []string{alice.ID}}
	if err := s.CreateFamily(ctx, family); err != nil {
		t.Fatalf("CreateFamily() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.AddMember(ctx, family.ID, bob.ID); err != nil {
			t.Fatalf("AddMember() error = %v", err)
		}
	}
	got, err := s.FindFamilyByMember(ctx, bob.ID)
	if err != nil {
		t.Fatalf("FindFamilyByMember() error = %v", err)
	}
	if len(got.MemberIDs) != 2 {
		t.Errorf("MemberIDs = %v, want 2 entries", got.MemberIDs)
	}

	todo := &models.Todo{ID: uuid.NewString(), UserID: alice.ID, Text: "Personal"}
	if err := s.CreateTodo(ctx, todo); err != nil {
		t.Fatalf("CreateTodo() error = %v", err)
	}
	done := true
	if _, err := s.UpdateTodo(ctx, todo.ID, bob.ID, models.TodoPatch{Done: &done}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign update: expected ErrNotFound, got %v", err)
	}
	updated, err := s.UpdateTodo(ctx, todo.ID, alice.ID, models.TodoPatch{Done: &done})
	if err != nil || !updated.Done {
		t.Errorf("UpdateTodo() = %+v, %v", updated, err)
	}

	shared := &models.FamilyTodo{ID: uuid.NewString(), FamilyID: family.ID, UserID: bob.ID, Text: "Shared"}
	if err := s.CreateFamilyTodo(ctx, shared); err != nil {
		t.Fatalf("CreateFamilyTodo() error = %v", err)
	}
	list, err := s.ListFamilyTodos(ctx, family.ID)
	if err != nil || len(list) != 1 || list[0].Done {
		t.Errorf("ListFamilyTodos() = %+v, %v", list, err)
	}
	if err := s.DeleteFamilyTodo(ctx, "other", shared.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-family delete: expected ErrNotFound, got %v", err)
	}

	snapshot, err := s.Dump(ctx)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if err := s.Restore(ctx, snapshot, true); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if _, err := s.GetUserByEmail(ctx, "bob@example.com"); err != nil {
		t.Errorf("user missing after restore: %v", err)
	}
}
