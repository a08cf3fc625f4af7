package models

import (
	"strings"
	"time"
)

// Todo is a personal task visible only to its owner
type Todo struct {
	ID          string
	UserID      string
	Text        string
	Description string
	Deadline    *time.Time
	Done        bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FamilyTodo is a task shared by every member of a family
type FamilyTodo struct {
	ID          string
	FamilyID    string
	UserID      string // creator
	Text        string
	Description string
	Deadline    *time.Time
	Done        bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FamilyTodoWithCreator pairs a shared task with its creator's details
type FamilyTodoWithCreator struct {
	Todo    FamilyTodo
	Creator *UserSummary
}

// TodoInput carries the fields accepted when creating a task
type TodoInput struct {
	Text        string
	Description string
	Deadline    *time.Time
}

// Validate checks the required fields
func (in TodoInput) Validate() error {
	if strings.TrimSpace(in.Text) == "" {
		return ErrTextRequired
	}
	return nil
}

// TodoPatch is a partial update. Nil fields are left untouched.
// ClearDeadline removes an existing deadline.
type TodoPatch struct {
	Text          *string
	Description   *string
	Deadline      *time.Time
	ClearDeadline bool
	Done          *bool
}

// IsEmpty reports whether the patch changes nothing
func (p TodoPatch) IsEmpty() bool {
	return p.Text == nil && p.Description == nil && p.Deadline == nil && !p.ClearDeadline && p.Done == nil
}

// Validate rejects patches that would blank the required text
func (p TodoPatch) Validate() error {
	if p.Text != nil && strings.TrimSpace(*p.Text) == "" {
		return ErrTextRequired
	}
	return nil
}

// Apply copies the patch onto a personal task
func (p TodoPatch) Apply(t *Todo) {
	t.Text, t.Description, t.Deadline, t.Done = p.merge(t.Text, t.Description, t.Deadline, t.Done)
}

// ApplyFamily copies the patch onto a shared task
func (p TodoPatch) ApplyFamily(t *FamilyTodo) {
	t.Text, t.Description, t.Deadline, t.Done = p.merge(t.Text, t.Description, t.Deadline, t.Done)
}

func (p TodoPatch) merge(text, desc string, deadline *time.Time, done bool) (string, string, *time.Time, bool) {
	if p.Text != nil {
		text = *p.Text
	}
	if p.Description != nil {
		desc = *p.Description
	}
	if p.ClearDeadline {
		deadline = nil
	}
	if p.Deadline != nil {
		d := *p.Deadline
		deadline = &d
	}
	if p.Done != nil {
		done = *p.Done
	}
	return text, desc, deadline, done
}
