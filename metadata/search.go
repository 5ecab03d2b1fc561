package metadata

import (
	cerrors "github.com/cockroachdb/errors"
)

// FindFreeBlock looks for a free block with a payload of at least size bytes, using the
// chain's fit strategy. size must already be aligned.
//
// found is NoBlock when nothing fits. last is the last block the search visited; when
// nothing fits it is always the tail of the chain, which is where Grow must attach a new
// block. Both are NoBlock for an empty heap.
func (c *Chain) FindFreeBlock(size int) (found BlockOffset, last BlockOffset) {
	switch c.strategy {
	case StrategyFirstFit:
		return c.firstFit(size)
	case StrategyBestFit:
		return c.bestFit(size)
	case StrategyWorstFit:
		return c.worstFit(size)
	case StrategyNextFit:
		return c.nextFit(size)
	default:
		panic(cerrors.AssertionFailedf("unknown fit strategy: %d", c.strategy))
	}
}

func (c *Chain) fits(block BlockOffset, size int) bool {
	h := c.header(block)
	return h.free() && h.size() >= size
}

func (c *Chain) firstFit(size int) (BlockOffset, BlockOffset) {
	last := NoBlock
	for block := c.head; block != NoBlock; block = c.Next(block) {
		if c.fits(block, size) {
			return block, last
		}
		last = block
	}

	return NoBlock, last
}

func (c *Chain) bestFit(size int) (BlockOffset, BlockOffset) {
	best := NoBlock
	bestLeftover := 0
	last := NoBlock

	for block := c.head; block != NoBlock; block = c.Next(block) {
		if c.fits(block, size) {
			leftover := c.Size(block) - size
			if best == NoBlock || leftover < bestLeftover {
				best = block
				bestLeftover = leftover
			}
		}
		last = block
	}

	return best, last
}

func (c *Chain) worstFit(size int) (BlockOffset, BlockOffset) {
	worst := NoBlock
	worstLeftover := 0
	last := NoBlock

	for block := c.head; block != NoBlock; block = c.Next(block) {
		if c.fits(block, size) {
			leftover := c.Size(block) - size
			if worst == NoBlock || leftover > worstLeftover {
				worst = block
				worstLeftover = leftover
			}
		}
		last = block
	}

	return worst, last
}

func (c *Chain) nextFit(size int) (BlockOffset, BlockOffset) {
	if c.head == NoBlock {
		return NoBlock, NoBlock
	}

	start := c.head
	if c.cursor != NoBlock {
		if next := c.Next(c.cursor); next != NoBlock {
			start = next
		}
	}

	// Visit every block exactly once: start..tail, then head..start
	tail := NoBlock
	block := start
	for {
		if c.fits(block, size) {
			c.cursor = block
			return block, block
		}

		next := c.Next(block)
		if next == NoBlock {
			tail = block
			next = c.head
		}
		if next == start {
			break
		}
		block = next
	}

	return NoBlock, tail
}

// blockRemoved keeps the next-fit cursor pointing at a live header after a block is merged
// into its predecessor
func (c *Chain) blockRemoved(removed, absorber BlockOffset) {
	if c.cursor == removed {
		c.cursor = absorber
	}
}
