package domain

import (
	"fmt"
	"time"
)

var (
	// ErrUserAlreadyExists is returned when trying to create a user with an existing username.
	ErrUserAlreadyExists = fmt.Errorf("%w: user already exists", ErrConflict)
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = fmt.Errorf("%w: user not found", ErrNotFound)
	// ErrInvalidCredentials is returned when the username/password combination is incorrect.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	// ErrNoUsername is returned when the username is missing.
	ErrNoUsername = fmt.Errorf("%w: no username", ErrValidation)
	// ErrNoPassword is returned when the password is missing.
	ErrNoPassword = fmt.Errorf("%w: no password", ErrValidation)
)

// User is a registered account. Users are never mutated after creation.
type User struct {
	Username   string    // Unique login name
	Salt       []byte    // Per-user random salt
	SaltedHash []byte    // Password hash derived with Salt
	CreatedAt  time.Time // Account creation time
}

// UserResponse is the externally visible part of a User.
type UserResponse struct {
	Username string `json:"username"`
}

// Safe strips credential material from the user.
func (u User) Safe() UserResponse {
	return UserResponse{Username: u.Username}
}
