//go:build unix

package source

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// MmapSource is a Source backed by a private anonymous mapping. The whole reservation is
// mapped once at creation and the break moves through it; the kernel only commits pages
// as they are touched, so a large reservation is cheap.
type MmapSource struct {
	mapping []byte
	brk     int
}

var _ Source = &MmapSource{}

// NewMmapSource maps a reservation of limit bytes, rounded up to the page size
func NewMmapSource(limit int) (*MmapSource, error) {
	if limit <= 0 {
		return nil, cerrors.Newf("invalid mmap source limit: %d", limit)
	}

	pageSize := unix.Getpagesize()
	limit = (limit + pageSize - 1) &^ (pageSize - 1)

	mapping, err := unix.Mmap(-1, 0, limit, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, cerrors.Wrapf(err, "failed to map %d bytes", limit)
	}

	return &MmapSource{mapping: mapping}, nil
}

func (s *MmapSource) Sbrk(increment int) (int, error) {
	if s.mapping == nil {
		return 0, cerrors.New("the mmap source has been released")
	}
	if increment < 0 {
		return 0, cerrors.Newf("the break cannot be moved backward by %d bytes", -increment)
	}

	oldBreak := s.brk
	if increment > len(s.mapping)-oldBreak {
		return 0, cerrors.Wrapf(ErrExhausted, "requested %d bytes with %d of %d mapped bytes remaining", increment, len(s.mapping)-oldBreak, len(s.mapping))
	}

	s.brk += increment
	return oldBreak, nil
}

func (s *MmapSource) Break() int { return s.brk }

func (s *MmapSource) Bytes() []byte { return s.mapping[:s.brk] }

// Limit returns the number of bytes reserved by the mapping
func (s *MmapSource) Limit() int { return len(s.mapping) }

func (s *MmapSource) Release() error {
	if s.mapping == nil {
		return nil
	}

	err := unix.Munmap(s.mapping)
	s.mapping = nil
	s.brk = 0
	return err
}
