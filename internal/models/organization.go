package models

import (
	"time"
)

// Organization is the tenant boundary every other entity belongs to
type Organization struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	OwnerUserID string    `json:"owner_user_id" db:"owner_user_id"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Membership links a user to an organization with a set of roles
type Membership struct {
	UserID         string    `json:"user_id" db:"user_id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Shortcode      string    `json:"shortcode,omitempty" db:"shortcode"`
	Status         Status    `json:"status" db:"status"`
	RoleIDs        []string  `json:"role_ids"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Clone returns a deep copy
func (m *Membership) Clone() *Membership {
	if m == nil {
		return nil
	}
	cp := *m
	cp.RoleIDs = cloneIDs(m.RoleIDs)
	return &cp
}

// Role is either a system role (no organization) or organization-owned
type Role struct {
	ID             string `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	OrganizationID string `json:"organization_id,omitempty" db:"organization_id"`
	System         bool   `json:"system" db:"system"`
	Status         Status `json:"status" db:"status"`
}

// System roles seeded by the initial migration
const (
	RoleOrganizationAdmin = "Organization Admin"
	RoleSchoolAdmin       = "School Admin"
	RoleTeacher           = "Teacher"
	RoleStudent           = "Student"
	RoleParent            = "Parent"
)
