package repository

import "errors"

var (
	ErrAlreadyExists = errors.New("error already exists")
	ErrNotFound      = errors.New("error not found")
	ErrConflict      = errors.New("error row changed concurrently")
	// ErrBrokenReference means a referenced row (plan, portfolio, investment) does not exist.
	ErrBrokenReference = errors.New("error referenced row does not exist")
)
