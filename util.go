package brkheap

import (
	"math"
	"math/bits"

	cerrors "github.com/cockroachdb/errors"
)

// Alignment is the granularity of every payload size handed out by the heap
const Alignment uint = 4

type Number interface {
	~int | ~uint
}

func CheckAligned[T Number](number T, alignment T, name string) error {
	if number%alignment != 0 {
		return cerrors.Newf("%s is %d, which is not a multiple of %d", name, number, alignment)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

// Align4 rounds size up to the smallest multiple of Alignment that is at least size. Sizes
// within Alignment of math.MaxInt wrap around; callers bound requests before aligning them.
func Align4(size int) int {
	return AlignUp(size, Alignment)
}

// MulSize multiplies an element count by an element size, returning false if the product
// does not fit in an int
func MulSize(count, size int) (int, bool) {
	if count < 0 || size < 0 {
		return 0, false
	}

	hi, lo := bits.Mul64(uint64(count), uint64(size))
	if hi != 0 || lo > math.MaxInt {
		return 0, false
	}

	return int(lo), true
}
