package source

import (
	cerrors "github.com/cockroachdb/errors"
)

// SliceSource is a Source backed by a Go byte slice whose capacity is reserved up front, so
// that advancing the break never relocates memory that has already been handed out.
type SliceSource struct {
	buf []byte
}

var _ Source = &SliceSource{}

// NewSliceSource reserves limit bytes. Sbrk fails with ErrExhausted once the break would
// pass limit.
func NewSliceSource(limit int) (*SliceSource, error) {
	if limit < 0 {
		return nil, cerrors.Newf("invalid slice source limit: %d", limit)
	}

	return &SliceSource{buf: make([]byte, 0, limit)}, nil
}

func (s *SliceSource) Sbrk(increment int) (int, error) {
	if s.buf == nil {
		return 0, cerrors.New("the slice source has been released")
	}
	if increment < 0 {
		return 0, cerrors.Newf("the break cannot be moved backward by %d bytes", -increment)
	}

	oldBreak := len(s.buf)
	if increment > cap(s.buf)-oldBreak {
		return 0, cerrors.Wrapf(ErrExhausted, "requested %d bytes with %d of %d bytes remaining", increment, cap(s.buf)-oldBreak, cap(s.buf))
	}

	s.buf = s.buf[:oldBreak+increment]
	return oldBreak, nil
}

func (s *SliceSource) Break() int { return len(s.buf) }

func (s *SliceSource) Bytes() []byte { return s.buf }

// Limit returns the number of bytes reserved for the region
func (s *SliceSource) Limit() int { return cap(s.buf) }

func (s *SliceSource) Release() error {
	s.buf = nil
	return nil
}
