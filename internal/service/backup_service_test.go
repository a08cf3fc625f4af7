package service

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"familytodo/internal/models"
	"familytodo/internal/storage"
)

func TestBackupRoundTrip(t *testing.T) {
	src := newTestStore(t)
	auth := newTestAuthService(src)
	families := NewFamilyService(src, src, nil)
	todos := NewTodoService(src)
	ctx := context.Background()

	alice := mustRegister(t, auth, "alice@example.com", "alice")
	if _, err := families.Create(ctx, alice.ID, "Smiths"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := todos.Create(ctx, alice.ID, models.TodoInput{Text: "Backup me"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var buf bytes.Buffer
	if err := NewBackupService(src).ExportToWriter(ctx, &buf); err != nil {
		t.Fatalf("ExportToWriter() error = %v", err)
	}

	var snap storage.Snapshot
	if err := json.Unmarshal(buf.Bytes(), &snap); err != nil {
		t.Fatalf("backup is not valid JSON: %v", err)
	}
	if len(snap.Users) != 1 || len(snap.Families) != 1 || len(snap.Todos) != 1 {
		t.Fatalf("unexpected snapshot counts: users=%d families=%d todos=%d", len(snap.Users), len(snap.Families), len(snap.Todos))
	}

	dst := newTestStore(t)
	if err := NewBackupService(dst).ImportFromReader(ctx, bytes.NewReader(buf.Bytes()), false); err != nil {
		t.Fatalf("ImportFromReader() error = %v", err)
	}

	// The restored password hash still verifies.
	session, err := newTestAuthService(dst).Login(ctx, "alice@example.com", "p1")
	if err != nil {
		t.Fatalf("Login() after restore error = %v", err)
	}
	list, err := NewTodoService(dst).List(ctx, session.User.ID)
	if err != nil || len(list) != 1 || list[0].Text != "Backup me" {
		t.Errorf("restored todos = %+v, %v", list, err)
	}
}

func TestBackupFileExport(t *testing.T) {
	store := newTestStore(t)
	mustRegister(t, newTestAuthService(store), "alice@example.com", "alice")
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "backup.json")

	svc := NewBackupService(store)
	if err := svc.Export(ctx, path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if err := svc.Import(ctx, path, true); err != nil {
		t.Fatalf("Import(clear) error = %v", err)
	}
	if _, err := store.GetUserByEmail(ctx, "alice@example.com"); err != nil {
		t.Errorf("user missing after clear+import: %v", err)
	}

	if err := svc.Import(ctx, filepath.Join(t.TempDir(), "missing.json"), false); err == nil {
		t.Error("expected error for missing file")
	}
}
