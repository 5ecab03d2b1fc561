//go:build !unix

package source

import cerrors "github.com/cockroachdb/errors"

// MmapSource is only available on unix platforms
type MmapSource struct {
	SliceSource
}

// NewMmapSource always fails on this platform; use NewSliceSource instead
func NewMmapSource(limit int) (*MmapSource, error) {
	return nil, cerrors.New("mmap-backed memory sources are only supported on unix platforms")
}
