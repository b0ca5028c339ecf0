// Package employee defines the employee record, its normalization rules and
// the persistence port implemented by the storage backends.
package employee

import (
	"strings"
	"time"
)

// Employee is a persisted employee record.
type Employee struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber"`
	Department  string    `json:"department"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NormalizeEmail returns the comparison form of an email address.
// The stored value keeps its original casing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone returns the comparison (and stored) form of a phone number.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// Trimmed returns a copy with every text field trimmed and the phone normalized.
func (e Employee) Trimmed() Employee {
	e.FirstName = strings.TrimSpace(e.FirstName)
	e.LastName = strings.TrimSpace(e.LastName)
	e.Email = strings.TrimSpace(e.Email)
	e.PhoneNumber = NormalizePhone(e.PhoneNumber)
	e.Department = strings.TrimSpace(e.Department)
	return e
}

// Validate checks the fields required for a directly created or updated record.
func (e Employee) Validate() error {
	var verr ValidationError
	if strings.TrimSpace(e.FirstName) == "" {
		verr.add("firstName", "first name is required")
	}
	if strings.TrimSpace(e.LastName) == "" {
		verr.add("lastName", "last name is required")
	}
	email := strings.TrimSpace(e.Email)
	switch {
	case email == "":
		verr.add("email", "email is required")
	case !strings.Contains(email, "@"):
		verr.add("email", "email format is invalid")
	}
	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}
