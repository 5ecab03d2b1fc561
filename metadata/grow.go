package metadata

import (
	cerrors "github.com/cockroachdb/errors"
)

// Grow asks the memory source for room for one more block of size payload bytes and
// appends it after last, which must be the tail of the chain (or NoBlock for an empty heap).
// The new block is marked as taken. If the source refuses, the chain is left untouched and
// the source's error is returned.
func (c *Chain) Grow(last BlockOffset, size int) (BlockOffset, error) {
	if size < 0 || size%4 != 0 {
		return NoBlock, cerrors.Newf("cannot grow the heap by a block of unaligned size %d", size)
	}
	if last == NoBlock && c.head != NoBlock {
		return NoBlock, cerrors.New("attempted to grow a non-empty heap without providing its tail")
	}
	if last != NoBlock && c.Next(last) != NoBlock {
		return NoBlock, cerrors.Newf("block at offset %d is not the tail of the chain", last)
	}

	expected := 0
	if last != NoBlock {
		expected = int(PayloadOf(last)) + c.Size(last)
	}

	offset, err := c.source.Sbrk(HeaderSize + size)
	if err != nil {
		return NoBlock, err
	}
	if offset != expected {
		panic(cerrors.AssertionFailedf("the memory source grew the region at offset %d, but the chain ends at offset %d", offset, expected))
	}

	block := BlockOffset(offset)
	c.header(block).init(size, NoBlock, false)

	if last == NoBlock {
		c.head = block
	} else {
		c.header(last).setNext(block)
	}

	return block, nil
}
