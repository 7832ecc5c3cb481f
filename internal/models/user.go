package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// accountNamespace seeds the deterministic user identifiers
var accountNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

// User is a person who can hold memberships in organizations
type User struct {
	ID          string    `json:"id" db:"id"`
	GivenName   string    `json:"given_name" db:"given_name"`
	FamilyName  string    `json:"family_name" db:"family_name"`
	Email       string    `json:"email,omitempty" db:"email"`
	Phone       string    `json:"phone,omitempty" db:"phone"`
	DateOfBirth string    `json:"date_of_birth,omitempty" db:"date_of_birth"` // MM-YYYY
	Gender      string    `json:"gender,omitempty" db:"gender"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Contact returns the email, or the phone when there is no email
func (u *User) Contact() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Phone
}

// AccountUUID derives a stable identifier from contact info. The input is
// only trimmed, so two spellings of the same address yield different ids.
func AccountUUID(contact string) string {
	return uuid.NewSHA1(accountNamespace, []byte(strings.TrimSpace(contact))).String()
}
