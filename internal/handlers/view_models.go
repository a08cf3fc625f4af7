package handlers

import (
	"bytes"
	"encoding/json"
	"time"

	"familytodo/internal/apperr"
	"familytodo/internal/models"
)

// JSON field names follow the document encoding existing clients read,
// including the "describtion" spelling.

type MemberView struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type FamilyView struct {
	ID           string       `json:"_id"`
	Name         string       `json:"name"`
	ReferralCode string       `json:"referralCode"`
	Members      []MemberView `json:"members"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type TodoView struct {
	ID          string     `json:"_id"`
	User        string     `json:"user"`
	Text        string     `json:"text"`
	Description string     `json:"describtion"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Done        bool       `json:"done"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type FamilyTodoView struct {
	ID          string      `json:"_id"`
	Family      string      `json:"family"`
	User        *MemberView `json:"user"`
	Text        string      `json:"text"`
	Description string      `json:"describtion"`
	Deadline    *time.Time  `json:"deadline,omitempty"`
	Done        bool        `json:"done"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type RegisteredView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type UserView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type LoginView struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// ProfileView is the user payload handed to the frontend after OAuth
type ProfileView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

type MessageView struct {
	Message string `json:"message"`
}

func memberView(u models.UserSummary) MemberView {
	return MemberView{ID: u.ID, Username: u.Username, Email: u.Email}
}

func familyView(f *models.FamilyWithMembers) FamilyView {
	members := make([]MemberView, 0, len(f.Members))
	for _, m := range f.Members {
		members = append(members, memberView(m))
	}
	return FamilyView{
		ID:           f.Family.ID,
		Name:         f.Family.Name,
		ReferralCode: f.Family.ReferralCode,
		Members:      members,
		CreatedAt:    f.Family.CreatedAt,
		UpdatedAt:    f.Family.UpdatedAt,
	}
}

func todoView(t *models.Todo) TodoView {
	return TodoView{
		ID:          t.ID,
		User:        t.UserID,
		Text:        t.Text,
		Description: t.Description,
		Deadline:    t.Deadline,
		Done:        t.Done,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func todoViews(todos []models.Todo) []TodoView {
	out := make([]TodoView, 0, len(todos))
	for i := range todos {
		out = append(out, todoView(&todos[i]))
	}
	return out
}

func familyTodoView(t *models.FamilyTodoWithCreator) FamilyTodoView {
	view := FamilyTodoView{
		ID:          t.Todo.ID,
		Family:      t.Todo.FamilyID,
		Text:        t.Todo.Text,
		Description: t.Todo.Description,
		Deadline:    t.Todo.Deadline,
		Done:        t.Todo.Done,
		CreatedAt:   t.Todo.CreatedAt,
		UpdatedAt:   t.Todo.UpdatedAt,
	}
	if t.Creator != nil {
		creator := memberView(*t.Creator)
		view.User = &creator
	}
	return view
}

func familyTodoViews(todos []models.FamilyTodoWithCreator) []FamilyTodoView {
	out := make([]FamilyTodoView, 0, len(todos))
	for i := range todos {
		out = append(out, familyTodoView(&todos[i]))
	}
	return out
}

// todoRequest is the body of task create and update calls. Deadline stays
// raw so that an explicit null can be told apart from an absent field.
type todoRequest struct {
	Text        *string         `json:"text"`
	Description *string         `json:"describtion"`
	Deadline    json.RawMessage `json:"deadline"`
	Done        *bool           `json:"done"`
}

var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// parseDeadline returns the deadline and whether the field asks to clear it
func parseDeadline(raw json.RawMessage) (*time.Time, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, apperr.Wrap(apperr.KindValidation, ErrBadRequest, err)
	}
	if s == "" {
		return nil, true, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, false, nil
		}
	}
	return nil, false, apperr.Validation(ErrBadRequest)
}

func (req todoRequest) input() (models.TodoInput, error) {
	deadline, _, err := parseDeadline(req.Deadline)
	if err != nil {
		return models.TodoInput{}, err
	}
	in := models.TodoInput{Deadline: deadline}
	if req.Text != nil {
		in.Text = *req.Text
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	return in, nil
}

func (req todoRequest) patch() (models.TodoPatch, error) {
	deadline, clear, err := parseDeadline(req.Deadline)
	if err != nil {
		return models.TodoPatch{}, err
	}
	return models.TodoPatch{
		Text:          req.Text,
		Description:   req.Description,
		Deadline:      deadline,
		ClearDeadline: clear,
		Done:          req.Done,
	}, nil
}
