package domain

import (
	"net/mail"
	"strings"
	"time"
)

// User owns a task list. Its tasks are derived by querying tasks on owner_id.
type User struct {
	ID           int64      `json:"id"`
	DisplayName  string     `json:"display_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NormalizeEmail lowercases and validates an address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", NewError(ErrCodeInvalid, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", WrapError(ErrCodeInvalid, "invalid email", err)
	}
	return email, nil
}
