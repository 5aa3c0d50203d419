package model

import "errors"

// Sentinel kinds for the cup error taxonomy. Every layer wraps these
// with %w so callers can classify via errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrMissingField  = errors.New("missing field")
	ErrParse         = errors.New("parse error")
)
