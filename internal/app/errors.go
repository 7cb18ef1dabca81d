package app

import "errors"

var (
	// ErrNotFound is returned when a referenced entity id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the caller is not the entity's
	// designated actor, e.g. not the answerer of a question.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUsernameTaken is returned on a uniqueness violation at signup
	// or admin user creation.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrRoleExists is returned when creating a role whose name is taken.
	ErrRoleExists = errors.New("role already exists")

	// ErrInvalidCredentials intentionally does not say which part was
	// wrong, to avoid account enumeration.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrInvalidInput is wrapped with a human-readable detail message.
	ErrInvalidInput = errors.New("invalid input")
)
