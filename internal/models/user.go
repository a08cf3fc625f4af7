package models

import "time"

// CredentialKind tags how a user proves their identity
type CredentialKind string

const (
	CredentialPassword CredentialKind = "password"
	CredentialExternal CredentialKind = "external"
)

// Credential is either a password hash or a link to an external identity
// provider. Exactly one of PasswordHash or Provider is set.
type Credential struct {
	Kind         CredentialKind
	PasswordHash string
	Provider     string
}

// PasswordCredential builds a credential for a bcrypt hash
func PasswordCredential(hash string) Credential {
	return Credential{Kind: CredentialPassword, PasswordHash: hash}
}

// ExternalCredential builds a credential for an account that can only sign in
// through the given provider
func ExternalCredential(provider string) Credential {
	return Credential{Kind: CredentialExternal, Provider: provider}
}

// IsExternalOnly reports whether the account has no usable password
func (c Credential) IsExternalOnly() bool {
	return c.Kind == CredentialExternal
}

// User represents an account in the system
type User struct {
	ID         string
	Email      string
	Username   string
	Credential Credential
	// ExternalProvider and ExternalID identify a linked external account.
	// A password account may carry a link as well.
	ExternalProvider string
	ExternalID       string
	DisplayName      string
	Avatar           string
	// FamilyID is a denormalized back-reference. The family's member set is
	// authoritative.
	FamilyID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserSummary is the subset of user fields embedded in family payloads
type UserSummary struct {
	ID       string
	Username string
	Email    string
}

// Summary returns the embeddable view of the user
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}
