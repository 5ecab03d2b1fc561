package metadata

import (
	"encoding/binary"
)

const (
	// HeaderSize is the number of bytes of bookkeeping placed immediately before every payload
	HeaderSize int = 24
	// MinPayload is the smallest payload worth splitting a block for. A block is only split
	// when the space left over after the request exceeds HeaderSize+MinPayload.
	MinPayload int = 4

	sizeField = 0
	nextField = 8
	freeField = 16
)

// BlockOffset is the byte offset of a block header within the heap region
type BlockOffset int

// NoBlock is the BlockOffset used when there is no block: past the tail of the chain, or
// in an empty heap
const NoBlock BlockOffset = -1

// Pointer identifies a payload handed out to a caller. It is the byte offset of the payload
// within the heap region.
type Pointer int

// Null is the Pointer value that does not refer to any payload. The first payload in a heap
// begins at HeaderSize, so no live allocation can ever be Null.
const Null Pointer = 0

// HeaderOf maps a payload pointer to the block header that precedes it
func HeaderOf(ptr Pointer) BlockOffset {
	return BlockOffset(int(ptr) - HeaderSize)
}

// PayloadOf maps a block header to the payload that follows it
func PayloadOf(block BlockOffset) Pointer {
	return Pointer(int(block) + HeaderSize)
}

// header is a view over the HeaderSize bytes of a single block.
//
// Layout: size (uint64) | next (uint64) | free (byte) | padding. next stores the offset of
// the following header, with 0 meaning there is none: offset 0 always holds the head of the
// chain, so it can never be anyone's successor.
type header []byte

func (h header) size() int {
	return int(binary.LittleEndian.Uint64(h[sizeField:]))
}

func (h header) setSize(size int) {
	binary.LittleEndian.PutUint64(h[sizeField:], uint64(size))
}

func (h header) next() BlockOffset {
	next := binary.LittleEndian.Uint64(h[nextField:])
	if next == 0 {
		return NoBlock
	}
	return BlockOffset(next)
}

func (h header) setNext(next BlockOffset) {
	if next == NoBlock {
		next = 0
	}
	binary.LittleEndian.PutUint64(h[nextField:], uint64(next))
}

func (h header) free() bool {
	return h[freeField] != 0
}

func (h header) setFree(free bool) {
	if free {
		h[freeField] = 1
	} else {
		h[freeField] = 0
	}
}

func (h header) init(size int, next BlockOffset, free bool) {
	for i := range h {
		h[i] = 0
	}
	h.setSize(size)
	h.setNext(next)
	h.setFree(free)
}
