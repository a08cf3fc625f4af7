package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"familytodo/internal/metrics"
	"familytodo/internal/models"
	"familytodo/internal/security"
	"familytodo/internal/storage"
	"familytodo/internal/validation"

	"github.com/google/uuid"
)

// Session is the result of a successful sign-in
type Session struct {
	Token string
	User  *models.User
}

// AuthService handles registration and sign-in
type AuthService struct {
	users      storage.UserStore
	identities *Dispatcher
	tokens     *security.TokenIssuer
}

// NewAuthService creates a new auth service
func NewAuthService(users storage.UserStore, identities *Dispatcher, tokens *security.TokenIssuer) *AuthService {
	return &AuthService{
		users:      users,
		identities: identities,
		tokens:     tokens,
	}
}

// Register creates a password account
func (s *AuthService) Register(ctx context.Context, email, username, password string) (user *models.User, err error) {
	defer func() { metrics.ObserveAuth("register", err) }()

	if !validation.Present(email, username, password) {
		return nil, ErrCredentialsRequired
	}
	email = validation.NormalizeEmail(email)
	username = validation.NormalizeUsername(username)

	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Credential.IsExternalOnly() {
			return nil, ErrRegisteredExternal
		}
		return nil, ErrEmailTaken
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	_, err = s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing username: %w", err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user = &models.User{
		ID:         uuid.NewString(),
		Email:      email,
		Username:   username,
		Credential: models.PasswordCredential(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, s.duplicateCause(ctx, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// duplicateCause tells a lost email race apart from a lost username race
func (s *AuthService) duplicateCause(ctx context.Context, email string) error {
	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

// Login signs in with email and password
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	return s.signIn(ctx, MethodPassword, Credentials{Email: email, Password: password})
}

// CompleteExternalLogin signs in with a profile returned by an external provider
func (s *AuthService) CompleteExternalLogin(ctx context.Context, provider string, profile ExternalProfile) (*Session, error) {
	return s.signIn(ctx, provider, Credentials{Profile: &profile})
}

func (s *AuthService) signIn(ctx context.Context, method string, creds Credentials) (session *Session, err error) {
	defer func() { metrics.ObserveAuth(method, err) }()

	user, err := s.identities.Resolve(ctx, method, creds)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to a user id
func (s *AuthService) Authenticate(token string) (string, error) {
	return s.tokens.Verify(token)
}
