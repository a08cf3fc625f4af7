package mongodb

import (
	"time"

	"familytodo/internal/models"
)

// Collection field names follow the documents the web client was built
// against, including the misspelled "describtion".

type userDoc struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"email"`
	Username       string    `bson:"username"`
	CredentialKind string    `bson:"credentialKind"`
	Password       string    `bson:"password,omitempty"`
	Provider       string    `bson:"provider,omitempty"`
	ExternalID     string    `bson:"externalId,omitempty"`
	DisplayName    string    `bson:"displayName,omitempty"`
	Avatar         string    `bson:"avatar,omitempty"`
	Family         string    `bson:"family,omitempty"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func newUserDoc(u *models.User) userDoc {
	return userDoc{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		CredentialKind: string(u.Credential.Kind),
		Password:       u.Credential.PasswordHash,
		Provider:       u.ExternalProvider,
		ExternalID:     u.ExternalID,
		DisplayName:    u.DisplayName,
		Avatar:         u.Avatar,
		Family:         u.FamilyID,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d userDoc) model() *models.User {
	u := &models.User{
		ID:               d.ID,
		Email:            d.Email,
		Username:         d.Username,
		ExternalProvider: d.Provider,
		ExternalID:       d.ExternalID,
		DisplayName:      d.DisplayName,
		Avatar:           d.Avatar,
		FamilyID:         d.Family,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if models.CredentialKind(d.CredentialKind) == models.CredentialExternal {
		u.Credential = models.ExternalCredential(d.Provider)
	} else {
		u.Credential = models.PasswordCredential(d.Password)
	}
	return u
}

type familyDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	ReferralCode string    `bson:"referralCode"`
	Members      []string  `bson:"members"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func newFamilyDoc(f *models.Family) familyDoc {
	members := f.MemberIDs
	if members == nil {
		members = []string{}
	}
	return familyDoc{
		ID:           f.ID,
		Name:         f.Name,
		ReferralCode: f.ReferralCode,
		Members:      members,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func (d familyDoc) model() *models.Family {
	members := d.Members
	if members == nil {
		members = []string{}
	}
	return &models.Family{
		ID:           d.ID,
		Name:         d.Name,
		ReferralCode: d.ReferralCode,
		MemberIDs:    members,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type todoDoc struct {
	ID          string     `bson:"_id"`
	User        string     `bson:"user"`
	Family      string     `bson:"family,omitempty"`
	Text        string     `bson:"text"`
	Description string     `bson:"describtion"`
	Deadline    *time.Time `bson:"deadline,omitempty"`
	Done        bool       `bson:"done"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

func newTodoDoc(t *models.Todo) todoDoc {
	return todoDoc{
		ID:          t.ID,
		User:        t.UserID,
		Text:        t.Text,
		Description: t.Description,
		Deadline:    utcPtr(t.Deadline),
		Done:        t.Done,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newFamilyTodoDoc(t *models.FamilyTodo) todoDoc {
	return todoDoc{
		ID:          t.ID,
		User:        t.UserID,
		Family:      t.FamilyID,
		Text:        t.Text,
		Description: t.Description,
		Deadline:    utcPtr(t.Deadline),
		Done:        t.Done,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d todoDoc) todo() models.Todo {
	return models.Todo{
		ID:          d.ID,
		UserID:      d.User,
		Text:        d.Text,
		Description: d.Description,
		Deadline:    utcPtr(d.Deadline),
		Done:        d.Done,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (d todoDoc) familyTodo() models.FamilyTodo {
	return models.FamilyTodo{
		ID:          d.ID,
		FamilyID:    d.Family,
		UserID:      d.User,
		Text:        d.Text,
		Description: d.Description,
		Deadline:    utcPtr(d.Deadline),
		Done:        d.Done,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
