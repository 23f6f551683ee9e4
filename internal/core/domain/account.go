package domain

import (
	"errors"
	"time"
)

const (
	PositionDoctor = "Doctor"
	PositionAdmin  = "Admin"
)

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUnauthorized       = errors.New("could not validate credentials")
	ErrTokenExpired       = errors.New("token has expired")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidInput       = errors.New("invalid input")
)

// Account is a clinical user able to upload scans and request predictions.
// Email and Username are globally unique.
type Account struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Position     string    `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the account may perform administrative deletes.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Position == PositionAdmin
}
