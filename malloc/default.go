package malloc

import (
	"os"
	"sync"

	cerrors "github.com/cockroachdb/errors"
)

var (
	defaultOnce      sync.Once
	defaultAllocator *Allocator
)

// Default returns the process-wide Allocator, creating it with DefaultStrategy on first use.
// It is synchronized, so the package-level functions may be called from any goroutine.
func Default() *Allocator {
	defaultOnce.Do(func() {
		allocator, err := New(CreateOptions{Synchronized: true})
		if err != nil {
			panic(cerrors.Wrap(err, "failed to create the default allocator"))
		}
		defaultAllocator = allocator
	})

	return defaultAllocator
}

// Malloc allocates size bytes from the default Allocator
func Malloc(size int) (Pointer, error) {
	return Default().Allocate(size)
}

// Free releases ptr to the default Allocator
func Free(ptr Pointer) {
	Default().Release(ptr)
}

// Calloc allocates count zeroed elements of size bytes from the default Allocator
func Calloc(count, size int) (Pointer, error) {
	return Default().ZeroAllocate(count, size)
}

// Realloc resizes ptr within the default Allocator
func Realloc(ptr Pointer, size int) (Pointer, error) {
	return Default().Reallocate(ptr, size)
}

// Bytes returns the memory behind a pointer from the default Allocator
func Bytes(ptr Pointer) []byte {
	return Default().Bytes(ptr)
}

// PrintStatistics writes the default Allocator's statistics to stdout. Only the first call
// prints anything, so it is safe to call from every exit path of a program.
func PrintStatistics() {
	_ = Default().ReportOnce(os.Stdout)
}
