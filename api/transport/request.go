package transport

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type TaskRequest struct {
	Title string `json:"title"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	BirthDate   string `json:"birth_date"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdateRequest leaves absent fields untouched; an empty birth_date clears it.
type ProfileUpdateRequest struct {
	DisplayName *string `json:"display_name"`
	BirthDate   *string `json:"birth_date"`
}

// ParseDate accepts YYYY-MM-DD or RFC 3339. Blank input yields nil.
func ParseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, err
		}
	}
	return &parsed, nil
}
