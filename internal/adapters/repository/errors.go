package repository

import "errors"

// Sentinel kinds for review log store errors.
var (
	ErrClosed    = errors.New("review log store closed")
	ErrEmptyPath = errors.New("sqlite path is empty")
)
