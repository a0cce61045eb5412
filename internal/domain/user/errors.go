package user

import "errors"

var (
	// ErrUserNotFound indicates no user matches the identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidInput indicates invalid user input.
	ErrInvalidInput = errors.New("invalid user input")
)
