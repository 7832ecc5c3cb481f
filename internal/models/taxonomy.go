package models

import (
	"fmt"
)

// Taxonomy entities with an empty OrganizationID are system records shared
// by every organization.

// Grade can link to the grades progressed from and to
type Grade struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id,omitempty" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	System         bool   `json:"system" db:"system"`
	Status         Status `json:"status" db:"status"`
	ProgressFromID string `json:"progress_from_grade_id,omitempty" db:"progress_from_grade_id"`
	ProgressToID   string `json:"progress_to_grade_id,omitempty" db:"progress_to_grade_id"`
}

// Program groups age ranges, grades and subjects
type Program struct {
	ID             string   `json:"id" db:"id"`
	OrganizationID string   `json:"organization_id,omitempty" db:"organization_id"`
	Name           string   `json:"name" db:"name"`
	System         bool     `json:"system" db:"system"`
	Status         Status   `json:"status" db:"status"`
	AgeRangeIDs    []string `json:"age_range_ids"`
	GradeIDs       []string `json:"grade_ids"`
	SubjectIDs     []string `json:"subject_ids"`
}

// Clone returns a deep copy
func (p *Program) Clone() *Program {
	if p == nil {
		return nil
	}
	cp := *p
	cp.AgeRangeIDs = cloneIDs(p.AgeRangeIDs)
	cp.GradeIDs = cloneIDs(p.GradeIDs)
	cp.SubjectIDs = cloneIDs(p.SubjectIDs)
	return &cp
}

// AgeRange is a [LowValue, HighValue] span in Unit
type AgeRange struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id,omitempty" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	LowValue       int    `json:"low_value" db:"low_value"`
	HighValue      int    `json:"high_value" db:"high_value"`
	Unit           string `json:"unit" db:"unit"`
	System         bool   `json:"system" db:"system"`
	Status         Status `json:"status" db:"status"`
}

// AgeRangeName renders the display name of a range, e.g. "3 - 5 year(s)"
func AgeRangeName(low, high int, unit string) string {
	return fmt.Sprintf("%d - %d %s(s)", low, high, unit)
}

// Category groups subcategories
type Category struct {
	ID             string   `json:"id" db:"id"`
	OrganizationID string   `json:"organization_id,omitempty" db:"organization_id"`
	Name           string   `json:"name" db:"name"`
	System         bool     `json:"system" db:"system"`
	Status         Status   `json:"status" db:"status"`
	SubcategoryIDs []string `json:"subcategory_ids"`
}

// Clone returns a deep copy
func (c *Category) Clone() *Category {
	if c == nil {
		return nil
	}
	cp := *c
	cp.SubcategoryIDs = cloneIDs(c.SubcategoryIDs)
	return &cp
}

// Subcategory is a leaf of the taxonomy
type Subcategory struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id,omitempty" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	System         bool   `json:"system" db:"system"`
	Status         Status `json:"status" db:"status"`
}

// Subject groups categories
type Subject struct {
	ID             string   `json:"id" db:"id"`
	OrganizationID string   `json:"organization_id,omitempty" db:"organization_id"`
	Name           string   `json:"name" db:"name"`
	System         bool     `json:"system" db:"system"`
	Status         Status   `json:"status" db:"status"`
	CategoryIDs    []string `json:"category_ids"`
}

// Clone returns a deep copy
func (s *Subject) Clone() *Subject {
	if s == nil {
		return nil
	}
	cp := *s
	cp.CategoryIDs = cloneIDs(s.CategoryIDs)
	return &cp
}

// NoneSpecified is the name of the seeded system fallback taxonomy entries
const NoneSpecified = "None Specified"
