package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"familytodo/internal/models"
	"familytodo/internal/security"
	"familytodo/internal/storage"
	"familytodo/internal/validation"

	"github.com/google/uuid"
)

// MethodPassword names the email and password sign-in method
const MethodPassword = "password"

// Credentials is the input to an IdentityResolver. Password sign-in uses
// Email and Password; external sign-in uses Profile.
type Credentials struct {
	Email    string
	Password string
	Profile  *ExternalProfile
}

// ExternalProfile is what an external identity provider tells us about the
// signed-in account
type ExternalProfile struct {
	Subject     string
	Email       string
	DisplayName string
	Avatar      string
}

// IdentityResolver turns presented credentials into a user account
type IdentityResolver interface {
	Method() string
	Resolve(ctx context.Context, creds Credentials) (*models.User, error)
}

// PasswordResolver checks an email and bcrypt password
type PasswordResolver struct {
	users storage.UserStore
}

// NewPasswordResolver creates a password resolver
func NewPasswordResolver(users storage.UserStore) *PasswordResolver {
	return &PasswordResolver{users: users}
}

func (r *PasswordResolver) Method() string { return MethodPassword }

// Resolve returns the user whose password matches. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (r *PasswordResolver) Resolve(ctx context.Context, creds Credentials) (*models.User, error) {
	email := validation.NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := r.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Credential.IsExternalOnly() {
		return nil, ErrUseExternalLogin
	}
	if !security.CheckPassword(creds.Password, user.Credential.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ExternalResolver signs in through an external provider, linking or
// creating the account on first use
type ExternalResolver struct {
	provider string
	users    storage.UserStore
	now      func() time.Time
}

// NewExternalResolver creates a resolver for provider (e.g. "google")
func NewExternalResolver(provider string, users storage.UserStore) *ExternalResolver {
	return &ExternalResolver{provider: provider, users: users, now: time.Now}
}

func (r *ExternalResolver) Method() string { return r.provider }

// Resolve finds the account by provider subject, then by email. An account
// found by email is linked to the subject. Otherwise a new external-only
// account is created.
func (r *ExternalResolver) Resolve(ctx context.Context, creds Credentials) (*models.User, error) {
	profile := creds.Profile
	if profile == nil || profile.Subject == "" {
		return nil, errors.New("missing external profile")
	}
	email := validation.NormalizeEmail(profile.Email)
	if email == "" {
		return nil, errors.New("external profile has no email")
	}

	user, err := r.users.GetUserByExternalID(ctx, r.provider, profile.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to lookup external user: %w", err)
	}

	user, err = r.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.ExternalID == "" {
			if err := r.users.LinkExternalIdentity(ctx, user.ID, r.provider, profile.Subject, profile.DisplayName, profile.Avatar); err != nil {
				return nil, fmt.Errorf("failed to link external identity: %w", err)
			}
			user.ExternalProvider = r.provider
			user.ExternalID = profile.Subject
			if profile.DisplayName != "" {
				user.DisplayName = profile.DisplayName
			}
			if profile.Avatar != "" {
				user.Avatar = profile.Avatar
			}
		}
		return user, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	user = &models.User{
		ID:               uuid.NewString(),
		Email:            email,
		Username:         validation.NormalizeUsername(validation.EmailLocalPart(email) + "_" + strconv.FormatInt(r.now().UnixMilli(), 10)),
		Credential:       models.ExternalCredential(r.provider),
		ExternalProvider: r.provider,
		ExternalID:       profile.Subject,
		DisplayName:      profile.DisplayName,
		Avatar:           profile.Avatar,
	}
	if err := r.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create external user: %w", err)
	}
	return user, nil
}

// Dispatcher routes credentials to the resolver registered for a method
type Dispatcher struct {
	resolvers map[string]IdentityResolver
}

// NewDispatcher registers resolvers by their Method name
func NewDispatcher(resolvers ...IdentityResolver) *Dispatcher {
	d := &Dispatcher{resolvers: make(map[string]IdentityResolver, len(resolvers))}
	for _, r := range resolvers {
		d.resolvers[r.Method()] = r
	}
	return d
}

// Resolve dispatches to the named method
func (d *Dispatcher) Resolve(ctx context.Context, method string, creds Credentials) (*models.User, error) {
	r, ok := d.resolvers[method]
	if !ok {
		return nil, ErrUnknownAuthMethod
	}
	return r.Resolve(ctx, creds)
}
