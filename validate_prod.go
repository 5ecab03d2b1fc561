//go:build !debug_brkheap

package brkheap

const (
	// DebugEnabled is true when the package is built with the debug_brkheap build tag
	DebugEnabled bool = false
)

// WriteFreedMagic fills a released payload with an easy-to-identify marker, so that reads
// through a dangling pointer stand out.
// This method no-ops unless the debug_brkheap build tag is present.
func WriteFreedMagic(payload []byte) {
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_brkheap build tag is present
func DebugValidate(validatable Validatable) {
}

// DebugCheckAligned will verify that the numerical value passed in is a multiple of Alignment,
// and panics if it is not.
// This method no-ops unless the debug_brkheap build tag is present.
func DebugCheckAligned(value int, name string) {
}
