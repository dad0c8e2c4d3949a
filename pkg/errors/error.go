// Package errors contains domain errors that different layers can use to add
// meaning to an error and that the HTTP handlers can transform to a status
// code. This is implemented as a separate package in order to avoid cycle
// import errors.
package errors

import "errors"

var (
	// ErrInvalidArgument is used when the provided argument is incorrect
	// (e.g. format, range).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is used when a resource doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is used when a resource can't be created because its
	// natural key is already taken.
	ErrAlreadyExists = errors.New("resource already exists")
)
