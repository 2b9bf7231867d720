package rental

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"rentalhub/internal/domain"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = domain.ErrRentalNotFound

	ErrImageRequired  = fmt.Errorf("%w: image is required", ErrInvalidInput)
	ErrImageTooLarge  = fmt.Errorf("%w: image exceeds maximum allowed size", ErrInvalidInput)
	ErrInvalidImage   = fmt.Errorf("%w: image type is not allowed", ErrInvalidInput)
	ErrEmptyImage     = fmt.Errorf("%w: image is empty", ErrInvalidInput)
	ErrInvalidSort    = fmt.Errorf("%w: unsupported sort field", ErrInvalidInput)
	ErrInvalidFormat  = fmt.Errorf("%w: unsupported export format", ErrInvalidInput)
	ErrQueryRequired  = fmt.Errorf("%w: query is required", ErrInvalidInput)
	ErrInvalidPageArg = fmt.Errorf("%w: page and limit must be integers", ErrInvalidInput)
)

// ValidationError lists the failing field names and validator tags.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "invalid input: " + strings.Join(names, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
