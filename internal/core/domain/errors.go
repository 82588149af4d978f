package domain

import "errors"

// Sentinel errors shared by services and adapters.
var (
	ErrNotFound          = errors.New("not found")
	ErrEmptySearchTerm   = errors.New("search term must not be empty")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrUnsupportedImage  = errors.New("unsupported image")
	ErrInvalidInput      = errors.New("invalid input")
)
