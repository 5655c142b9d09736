package database

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidKey      = errors.New("invalid key")
	ErrInvalidCategory = errors.New("unknown category")
	ErrInvalidTags     = errors.New("unknown tag")
	ErrSlugExhausted   = errors.New("could not allocate a unique slug")
)
