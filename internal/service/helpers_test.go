package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"familytodo/internal/database"
	"familytodo/internal/models"
	"familytodo/internal/repository"
	"familytodo/internal/security"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repository.NewStore(db)
}

func newTestAuthService(store *repository.Store) *AuthService {
	identities := NewDispatcher(
		NewPasswordResolver(store),
		NewExternalResolver("google", store),
	)
	return NewAuthService(store, identities, security.NewTokenIssuer("test-secret", time.Hour))
}

func mustRegister(t *testing.T, auth *AuthService, email, username string) *models.User {
	t.Helper()
	user, err := auth.Register(context.Background(), email, username, "p1")
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	return user
}

// recordingMailer captures sent messages
type recordingMailer struct {
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}
