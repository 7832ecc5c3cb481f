package models

import (
	"time"
)

// School belongs to one organization
type School struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Shortcode      string    `json:"shortcode,omitempty" db:"shortcode"`
	Status         Status    `json:"status" db:"status"`
	ProgramIDs     []string  `json:"program_ids"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Clone returns a deep copy
func (s *School) Clone() *School {
	if s == nil {
		return nil
	}
	cp := *s
	cp.ProgramIDs = cloneIDs(s.ProgramIDs)
	return &cp
}

// SchoolMembership links a user to a school
type SchoolMembership struct {
	UserID   string `json:"user_id" db:"user_id"`
	SchoolID string `json:"school_id" db:"school_id"`
	Status   Status `json:"status" db:"status"`
}

// Class belongs to an organization and optionally to schools
type Class struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Shortcode      string    `json:"shortcode,omitempty" db:"shortcode"`
	Status         Status    `json:"status" db:"status"`
	SchoolIDs      []string  `json:"school_ids"`
	ProgramIDs     []string  `json:"program_ids"`
	GradeIDs       []string  `json:"grade_ids"`
	TeacherIDs     []string  `json:"teacher_ids"`
	StudentIDs     []string  `json:"student_ids"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Clone returns a deep copy
func (c *Class) Clone() *Class {
	if c == nil {
		return nil
	}
	cp := *c
	cp.SchoolIDs = cloneIDs(c.SchoolIDs)
	cp.ProgramIDs = cloneIDs(c.ProgramIDs)
	cp.GradeIDs = cloneIDs(c.GradeIDs)
	cp.TeacherIDs = cloneIDs(c.TeacherIDs)
	cp.StudentIDs = cloneIDs(c.StudentIDs)
	return &cp
}
