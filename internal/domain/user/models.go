package user

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type User struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	PasswordHash         string    `json:"-"`
	IsPremium            bool      `json:"isPremium"`
	IsAdmin              bool      `json:"isAdmin"`
	IsActive             bool      `json:"isActive"`
	NotificationsEnabled bool      `json:"notificationsEnabled"`
	LastActiveAt         time.Time `json:"lastActiveAt"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
}

func (p CreateUserParams) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(p.Email, "@") {
		return errors.New("email is invalid")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}

type UpdateUserParams struct {
	Name                 *string
	IsPremium            *bool
	NotificationsEnabled *bool
}
