// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxUsernameLen = 36

	// GuestName is shown for participants that joined without typing a name.
	GuestName = "guest"
)

var ErrUsernameTooLong = errors.New("username too long")

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// ValidateDisplayName checks a name typed in the lobby.
// An empty name is allowed there; it becomes GuestName once the user joins.
func ValidateDisplayName(name string) error {
	if utf8.RuneCountInString(name) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username string) (*User, error) {
	if err := ValidateDisplayName(username); err != nil {
		return nil, err
	}
	if username == "" {
		username = GuestName
	}
	id := UserID(uuid.NewString())
	return &User{ID: id, Username: username}, nil
}
