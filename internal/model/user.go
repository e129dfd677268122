package model

import (
	"strings"
)

// User is the directory view of an identity: enough to address and greet a patient.
type User struct {
	ID        string  `db:"id" json:"id"`
	Email     *string `db:"email" json:"email"`
	FirstName *string `db:"first_name" json:"firstName"`
	LastName  *string `db:"last_name" json:"lastName"`
	Phone     *string `db:"phone" json:"phone"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// DisplayName returns "first last", else the email, else the raw user id.
func (u *User) DisplayName(fallbackID string) string {
	if u == nil {
		return fallbackID
	}
	if name := strings.TrimSpace(deref(u.FirstName) + " " + deref(u.LastName)); name != "" {
		return name
	}
	if email := deref(u.Email); email != "" {
		return email
	}
	return fallbackID
}

// GreetingName returns the first name, else the email.
func (u *User) GreetingName() string {
	if u == nil {
		return ""
	}
	if first := deref(u.FirstName); first != "" {
		return first
	}
	return deref(u.Email)
}

// EmailAddress returns the trimmed email or "".
func (u *User) EmailAddress() string {
	if u == nil {
		return ""
	}
	return deref(u.Email)
}
