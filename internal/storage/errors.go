package storage

import "errors"

var (
	ErrInvalidKey   = errors.New("invalid file key")
	ErrFileNotFound = errors.New("file not found")
)
