package brkheap

import "github.com/pkg/errors"

var (
	// ErrInvalidSize is returned when an allocation of zero or fewer bytes is requested
	ErrInvalidSize error = errors.New("allocation size must be greater than zero")
	// ErrOutOfMemory is returned when the heap cannot be grown to satisfy a request
	ErrOutOfMemory error = errors.New("out of memory")
)
