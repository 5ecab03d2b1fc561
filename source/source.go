// Package source models the heap growth boundary: a single contiguous region of memory
// whose upper bound (the break) can only be advanced.
package source

import "github.com/pkg/errors"

//go:generate mockgen -source source.go -destination mocks/source.go -package mock_source

// ErrExhausted is returned from Sbrk when the region cannot be extended any further
var ErrExhausted error = errors.New("the memory source refused to extend the region")

// Source is the primitive an allocator uses to obtain raw memory. Implementations own a
// single region starting at offset 0 and extending to the current break. The region never
// moves and never shrinks: bytes handed out by Sbrk remain addressable at the same offset
// until Release is called.
type Source interface {
	// Sbrk advances the break by increment bytes and returns the offset of the previous break,
	// which is the first byte of the newly available memory. If the region cannot grow, Sbrk
	// returns an error wrapping ErrExhausted and the break is unchanged.
	Sbrk(increment int) (int, error)
	// Break returns the current size of the region in bytes
	Break() int
	// Bytes returns the region from offset 0 to the current break
	Bytes() []byte
	// Release returns the whole region to its owner. The Source may not be used afterward.
	Release() error
}
