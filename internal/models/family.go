package models

import (
	"slices"
	"time"
)

// Family is a group of users sharing a task list
type Family struct {
	ID           string
	Name         string
	ReferralCode string
	MemberIDs    []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasMember reports whether userID is in the member set
func (f *Family) HasMember(userID string) bool {
	return userID != "" && slices.Contains(f.MemberIDs, userID)
}

// FamilyWithMembers combines a family with its member details
type FamilyWithMembers struct {
	Family  Family
	Members []UserSummary
}
